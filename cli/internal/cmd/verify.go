// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"io"

	"github.com/edgelesssys/pullup/controller/requirements"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/edgelesssys/pullup/util"
	"github.com/spf13/cobra"
)

const verifyDesc = `
Check the transition requirements of the controller against every combination
of Manager state, Sensor state, sensor health flag and inputs.

With --reachable, only records reachable from the initial state are checked.
With --historical, the requirements as first written against the generated
controller are checked instead. Several of them do not hold; their
counterexamples are listed and the command does not fail.
`

// NewVerifyCmd returns the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Exhaustively check the controller's transition requirements",
		Long:  verifyDesc,
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}

	cmd.Flags().Bool("historical", false, "Check the historical requirement statements instead")
	cmd.Flags().Bool("reachable", false, "Only check records reachable from the initial state")
	cmd.Flags().IntP("max-counterexamples", "n", 3, "Maximum number of counterexamples printed per requirement")
	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

type verifyOptions struct {
	historical bool
	reachable  bool
	maxCex     int
	output     string
}

func runVerify(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	historical, err := flags.GetBool("historical")
	if err != nil {
		return err
	}
	reachable, err := flags.GetBool("reachable")
	if err != nil {
		return err
	}
	maxCex, err := flags.GetInt("max-counterexamples")
	if err != nil {
		return err
	}
	output, err := parseOutputFlag(flags, outputText, outputJSON)
	if err != nil {
		return err
	}
	initial, err := util.InitialStateFromEnv()
	if err != nil {
		return err
	}

	return cliVerify(cmd.OutOrStdout(), initial, verifyOptions{
		historical: historical,
		reachable:  reachable,
		maxCex:     maxCex,
		output:     output,
	})
}

// cliVerify runs the requirement checker and prints the report.
func cliVerify(out io.Writer, initial state.Persistent, opts verifyOptions) error {
	if opts.maxCex < 0 {
		return fmt.Errorf("--max-counterexamples must not be negative, got %d", opts.maxCex)
	}
	cases := requirements.Enumerate()
	if opts.reachable {
		cases = requirements.CasesFrom(requirements.Reachable(initial))
	}

	reqs := append(requirements.Standard(), requirements.Properties()...)
	if opts.historical {
		reqs = requirements.Historical()
	}
	report := requirements.Check(cases, reqs...)

	if opts.output == outputJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printReport(out, report, opts.maxCex)
	}

	if !report.OK() && !opts.historical {
		return fmt.Errorf("requirements violated: %v", report.Violated())
	}
	return nil
}

func printReport(out io.Writer, report requirements.Report, maxCex int) {
	fmt.Fprintf(out, "Checked %d requirements against %d cases\n", len(report.Outcomes), report.Cases)
	for _, o := range report.Outcomes {
		switch {
		case o.Holds() && o.Vacuous():
			fmt.Fprintf(out, "%-4s vacuous   %s\n", o.ID, o.Description)
		case o.Holds():
			fmt.Fprintf(out, "%-4s holds     %s (%d cases)\n", o.ID, o.Description, o.Checked)
		default:
			fmt.Fprintf(out, "%-4s VIOLATED  %s (%d of %d cases)\n", o.ID, o.Description, len(o.Counterexamples), o.Checked)
			for i, cex := range o.Counterexamples {
				if i >= maxCex {
					fmt.Fprintf(out, "       ... %d more\n", len(o.Counterexamples)-maxCex)
					break
				}
				fmt.Fprintf(out, "       %s -> %s pullup=%t\n", cex.Case, cex.Next, cex.Pullup)
			}
		}
	}
}
