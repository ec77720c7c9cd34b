// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"
	"io"

	"github.com/edgelesssys/pullup/controller/manager"
	"github.com/edgelesssys/pullup/controller/output"
	"github.com/edgelesssys/pullup/controller/sensor"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewTableCmd returns the table command.
func NewTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the transition tables of the Manager and Sensor machines",
		Long: `Print the transition tables of the Manager and Sensor machines and the
status flags of every Manager state. Rows are generated by evaluating the
transition functions on every input combination.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutputFlag(cmd.Flags(), outputText, outputJSON, outputYAML)
			if err != nil {
				return err
			}
			changesOnly, err := cmd.Flags().GetBool("changes-only")
			if err != nil {
				return err
			}
			return cliTable(cmd.OutOrStdout(), format, changesOnly)
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text, json or yaml)")
	cmd.Flags().Bool("changes-only", false, "Omit rows in which the machine keeps its state")

	return cmd
}

type managerRow struct {
	From          string `json:"from" yaml:"from"`
	SensorHealthy bool   `json:"sensorHealthy" yaml:"sensorHealthy"`
	Standby       bool   `json:"standby" yaml:"standby"`
	APFail        bool   `json:"apfail" yaml:"apfail"`
	Supported     bool   `json:"supported" yaml:"supported"`
	To            string `json:"to" yaml:"to"`
}

type sensorRow struct {
	From   string `json:"from" yaml:"from"`
	Flag0  bool   `json:"flag0" yaml:"flag0"`
	Flag1  bool   `json:"flag1" yaml:"flag1"`
	Limits bool   `json:"limits" yaml:"limits"`
	To     string `json:"to" yaml:"to"`
}

type outputRow struct {
	Manager string `json:"manager" yaml:"manager"`
	Flag0   bool   `json:"flag0" yaml:"flag0"`
	Flag1   bool   `json:"flag1" yaml:"flag1"`
	Pullup  bool   `json:"pullup" yaml:"pullup"`
}

type transitionTables struct {
	Manager []managerRow `json:"manager" yaml:"manager"`
	Sensor  []sensorRow  `json:"sensor" yaml:"sensor"`
	Output  []outputRow  `json:"output" yaml:"output"`
}

var bools = []bool{false, true}

func buildTables(changesOnly bool) transitionTables {
	var tables transitionTables
	for _, from := range state.ManagerStates() {
		for _, healthy := range bools {
			for _, standby := range bools {
				for _, apfail := range bools {
					for _, supported := range bools {
						to := manager.Next(from, healthy, standby, apfail, supported)
						if changesOnly && to == from {
							continue
						}
						tables.Manager = append(tables.Manager, managerRow{
							From: from.String(), SensorHealthy: healthy, Standby: standby,
							APFail: apfail, Supported: supported, To: to.String(),
						})
					}
				}
			}
		}
		flags := output.Map(from)
		tables.Output = append(tables.Output, outputRow{
			Manager: from.String(), Flag0: flags.Flag0(), Flag1: flags.Flag1(), Pullup: flags.Pullup(),
		})
	}
	for _, from := range state.SensorStates() {
		for _, flag0 := range bools {
			for _, flag1 := range bools {
				for _, limits := range bools {
					to := sensor.Next(from, flag0, flag1, limits)
					if changesOnly && to == from {
						continue
					}
					tables.Sensor = append(tables.Sensor, sensorRow{
						From: from.String(), Flag0: flag0, Flag1: flag1, Limits: limits, To: to.String(),
					})
				}
			}
		}
	}
	return tables
}

func cliTable(out io.Writer, format string, changesOnly bool) error {
	tables := buildTables(changesOnly)
	switch format {
	case outputJSON:
		return writeJSON(out, tables)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(tables); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintln(out, "Manager")
	fmt.Fprintf(out, "  %-11s %-8s %-8s %-7s %-10s %s\n", "FROM", "HEALTHY", "STANDBY", "APFAIL", "SUPPORTED", "TO")
	for _, r := range tables.Manager {
		fmt.Fprintf(out, "  %-11s %-8s %-8s %-7s %-10s %s\n", r.From, onOff(r.SensorHealthy), onOff(r.Standby), onOff(r.APFail), onOff(r.Supported), r.To)
	}
	fmt.Fprintln(out, "Output")
	fmt.Fprintf(out, "  %-11s %-6s %-6s %s\n", "MANAGER", "FLAG0", "FLAG1", "PULLUP")
	for _, r := range tables.Output {
		fmt.Fprintf(out, "  %-11s %-6s %-6s %s\n", r.Manager, onOff(r.Flag0), onOff(r.Flag1), onOff(r.Pullup))
	}
	fmt.Fprintln(out, "Sensor")
	fmt.Fprintf(out, "  %-11s %-6s %-6s %-7s %s\n", "FROM", "FLAG0", "FLAG1", "LIMITS", "TO")
	for _, r := range tables.Sensor {
		fmt.Fprintf(out, "  %-11s %-6s %-6s %-7s %s\n", r.From, onOff(r.Flag0), onOff(r.Flag1), onOff(r.Limits), r.To)
	}
	return nil
}
