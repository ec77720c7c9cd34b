// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logging

import (
	"log"
	"strings"

	"go.uber.org/zap"
)

// NewWrapper returns a standard library logger that forwards every line to zapLogger at error level.
func NewWrapper(zapLogger *zap.Logger) *log.Logger {
	return log.New(logWrapper{zapLogger}, "", 0)
}

type logWrapper struct {
	*zap.Logger
}

func (l logWrapper) Write(p []byte) (n int, err error) {
	l.Error(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
