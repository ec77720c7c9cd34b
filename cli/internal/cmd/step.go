// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/edgelesssys/pullup/cli/internal/file"
	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/snapshot"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewStepCmd returns the step command.
func NewStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Compute a single control cycle from an explicit state",
		Long: `Compute a single control cycle from an explicit state.

The previous state is given either with --manager, --sensor and --healthy or as
a JSON snapshot with --state. Snapshots accept state names or their numeric
encoding, e.g. '{"manager": 2, "sensor": 0, "sensorHealthy": true}'. A snapshot
starting with '@' names a file to read it from.`,
		Example: "pullup step --manager NOMINAL --healthy=false --supported",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prev, in, err := parseStepFlags(cmd.Flags(), afero.NewOsFs())
			if err != nil {
				return err
			}
			format, err := parseOutputFlag(cmd.Flags(), outputText, outputJSON, outputCBOR)
			if err != nil {
				return err
			}
			return cliStep(cmd.OutOrStdout(), prev, in, format)
		},
	}

	cmd.Flags().String("manager", state.ManagerTransition.String(), "Previous Manager state")
	cmd.Flags().String("sensor", state.SensorNominal.String(), "Previous Sensor state")
	cmd.Flags().Bool("healthy", true, "Sensor health flag committed by the previous cycle")
	cmd.Flags().String("state", "", "Previous state as JSON snapshot or @file, excludes --manager, --sensor and --healthy")
	cmd.Flags().Bool("standby", false, "Pilot is in control")
	cmd.Flags().Bool("apfail", false, "Autopilot failure")
	cmd.Flags().Bool("supported", false, "System health OK")
	cmd.Flags().Bool("limits", false, "Sensor limits exceeded")
	cmd.Flags().StringP("output", "o", outputText, "Output format (text, json or cbor)")
	cmd.MarkFlagsMutuallyExclusive("state", "manager")
	cmd.MarkFlagsMutuallyExclusive("state", "sensor")
	cmd.MarkFlagsMutuallyExclusive("state", "healthy")

	return cmd
}

func parseStepFlags(flags *pflag.FlagSet, fs afero.Fs) (state.Persistent, state.Inputs, error) {
	var in state.Inputs
	var err error
	if in.Standby, err = flags.GetBool("standby"); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if in.APFail, err = flags.GetBool("apfail"); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if in.Supported, err = flags.GetBool("supported"); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if in.Limits, err = flags.GetBool("limits"); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}

	raw, err := flags.GetString("state")
	if err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		if path == "" {
			return state.Persistent{}, state.Inputs{}, errors.New("--state: missing file name after @")
		}
		data, err := file.New(path, fs).Read()
		if err != nil {
			return state.Persistent{}, state.Inputs{}, fmt.Errorf("reading --state: %w", err)
		}
		raw = string(data)
	}
	if raw != "" {
		prev, err := snapshot.UnmarshalJSON([]byte(raw))
		if err != nil {
			return state.Persistent{}, state.Inputs{}, fmt.Errorf("parsing --state: %w", err)
		}
		return prev, in, nil
	}

	var prev state.Persistent
	managerName, err := flags.GetString("manager")
	if err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if prev.Manager, err = state.ParseManagerState(managerName); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	sensorName, err := flags.GetString("sensor")
	if err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if prev.Sensor, err = state.ParseSensorState(sensorName); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	if prev.SensorHealthy, err = flags.GetBool("healthy"); err != nil {
		return state.Persistent{}, state.Inputs{}, err
	}
	return prev, in, nil
}

type stepOutput struct {
	Prev   state.Persistent `json:"prev"`
	Inputs state.Inputs     `json:"inputs"`
	Next   state.Persistent `json:"next"`
	Flags  [3]bool          `json:"flags"`
	Pullup bool             `json:"pullup"`
}

func cliStep(out io.Writer, prev state.Persistent, in state.Inputs, format string) error {
	res := core.Evaluate(prev, in)

	switch format {
	case outputJSON:
		return writeJSON(out, stepOutput{Prev: prev, Inputs: in, Next: res.Next, Flags: res.Flags, Pullup: res.Pullup})
	case outputCBOR:
		data, err := snapshot.EncodeCBOR(res.Next)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hex.EncodeToString(data))
		return nil
	}

	fmt.Fprintf(out, "Previous: %s\n", prev)
	fmt.Fprintf(out, "Next:     %s\n", res.Next)
	fmt.Fprintf(out, "Flags:    %s\n", res.Flags)
	fmt.Fprintf(out, "Pullup:   %t\n", res.Pullup)
	return nil
}
