// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	assert.NoError(generate(&out))
	assert.Contains(out.String(), "* [run](#pullup-run): Run a scenario file against the controller")
	assert.Contains(out.String(), "## pullup verify")
	assert.NotContains(out.String(), "### SEE ALSO")
}
