// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cmd implements the pullup CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/edgelesssys/pullup/controller/state"
	"github.com/spf13/pflag"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
	outputCBOR = "cbor"
)

type fileWriter interface {
	Write([]byte) error
	Name() string
}

// parseOutputFlag reads the --output flag and checks it against the formats a command supports.
func parseOutputFlag(flags *pflag.FlagSet, supported ...string) (string, error) {
	output, err := flags.GetString("output")
	if err != nil {
		return "", err
	}
	for _, s := range supported {
		if output == s {
			return output, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q, expected one of %v", output, supported)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func onOff(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatInputs(in state.Inputs) string {
	return fmt.Sprintf("%-8s %-7s %-10s %-7s", onOff(in.Standby), onOff(in.APFail), onOff(in.Supported), onOff(in.Limits))
}
