// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/edgelesssys/pullup/cli/internal/file"
	"github.com/edgelesssys/pullup/controller/constants"
	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/events"
	"github.com/edgelesssys/pullup/controller/scenario"
	"github.com/edgelesssys/pullup/controller/server"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/edgelesssys/pullup/controller/translog"
	"github.com/edgelesssys/pullup/util"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const runDesc = `
Run a scenario file against a fresh controller.

A scenario lists the four inputs (standby, apfail, supported, limits) for each
cycle and, optionally, the state and pullup output expected after it. Cycles run
back to back. The command fails if any expectation does not hold.

Example scenario:

  name: sensor fault latches pullup
  initial: {manager: NOMINAL, sensor: NOMINAL, sensorHealthy: true}
  cycles:
    - inputs: {supported: true, limits: true}
      expect: {sensor: FAULT, pullup: false}
    - inputs: {supported: true, limits: true}
      expect: {manager: MANEUVER, pullup: true}
`

// NewRunCmd returns the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <scenario.yaml>",
		Short:   "Run a scenario file against the controller",
		Long:    runDesc,
		Example: "pullup run scenarios/latch.yaml --trace trace.json",
		Args:    cobra.ExactArgs(1),
		RunE:    runRun,
	}

	cmd.Flags().String("trace", "", "File to write the JSON trace of all cycles to")
	cmd.Flags().Bool("audit", false, "Print the transition audit log after the run")
	cmd.Flags().String("metrics-addr", util.Getenv(constants.PromAddr, ""), "Address to serve /metrics, /events, /audit and /state on while the command runs")
	cmd.Flags().Bool("hold", false, "Keep serving the metrics endpoint after the run until interrupted")
	cmd.Flags().StringP("output", "o", outputText, "Output format of the cycle table (text or json)")

	return cmd
}

type runFlags struct {
	trace       string
	audit       bool
	metricsAddr string
	hold        bool
	output      string
}

func parseRunFlags(flags *pflag.FlagSet) (runFlags, error) {
	trace, err := flags.GetString("trace")
	if err != nil {
		return runFlags{}, err
	}
	audit, err := flags.GetBool("audit")
	if err != nil {
		return runFlags{}, err
	}
	metricsAddr, err := flags.GetString("metrics-addr")
	if err != nil {
		return runFlags{}, err
	}
	hold, err := flags.GetBool("hold")
	if err != nil {
		return runFlags{}, err
	}
	if hold && metricsAddr == "" {
		return runFlags{}, errors.New("--hold requires --metrics-addr")
	}
	output, err := parseOutputFlag(flags, outputText, outputJSON)
	if err != nil {
		return runFlags{}, err
	}
	return runFlags{trace: trace, audit: audit, metricsAddr: metricsAddr, hold: hold, output: output}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	flags, err := parseRunFlags(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := util.NewLoggerFromEnv()
	if err != nil {
		return err
	}
	defer log.Sync()
	initial, err := util.InitialStateFromEnv()
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	sc, err := scenario.Load(fs, args[0])
	if err != nil {
		return err
	}
	var traceFile fileWriter
	if flags.trace != "" {
		traceFile = file.New(flags.trace, fs)
	}
	return cliRun(cmd.Context(), cmd.OutOrStdout(), sc, initial, flags, traceFile, log)
}

// cliRun runs the scenario and prints one line per cycle.
func cliRun(ctx context.Context, out io.Writer, sc scenario.Scenario, initial state.Persistent, flags runFlags, traceFile fileWriter, log *zap.Logger) error {
	runID := uuid.NewString()
	log = log.With(zap.String("runID", runID), zap.String("scenario", sc.Name))
	eventlog := events.NewLog(runID)

	audit, err := translog.New()
	if err != nil {
		return fmt.Errorf("creating audit log: %w", err)
	}

	var promRegistry *prometheus.Registry
	var promFactoryPtr *promauto.Factory
	if flags.metricsAddr != "" {
		promRegistry = prometheus.NewRegistry()
		promFactory := promauto.With(promRegistry)
		promFactoryPtr = &promFactory
	}

	co, err := core.NewCore(initial, log, promFactoryPtr, eventlog, audit)
	if err != nil {
		return err
	}

	var serverDone chan error
	serverCtx, stopServer := context.WithCancel(ctx)
	defer func() {
		stopServer()
		if serverDone == nil {
			return
		}
		if err := <-serverDone; err != nil {
			log.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()
	if flags.metricsAddr != "" {
		serverDone = make(chan error, 1)
		mux := server.CreateServeMux(promRegistry, eventlog, audit, co)
		go func() { serverDone <- server.RunPrometheusServer(serverCtx, flags.metricsAddr, log, mux) }()
	}

	trace, err := scenario.Run(ctx, co, sc)
	if err != nil {
		return err
	}

	if err := printTrace(out, trace, flags.output); err != nil {
		return err
	}
	if traceFile != nil {
		data, err := json.MarshalIndent(trace, "", "  ")
		if err != nil {
			return err
		}
		if err := traceFile.Write(data); err != nil {
			return err
		}
		fmt.Fprintf(out, "Trace written to %s\n", traceFile.Name())
	}
	if flags.audit {
		fmt.Fprint(out, audit.String())
	}

	if flags.hold {
		fmt.Fprintf(out, "Serving metrics on %s, interrupt to exit\n", flags.metricsAddr)
		select {
		case <-ctx.Done():
		case err := <-serverDone:
			serverDone = nil
			if err != nil {
				return fmt.Errorf("serving metrics: %w", err)
			}
		}
	}

	if !trace.Passed() {
		for _, m := range trace.Mismatches {
			fmt.Fprintln(out, m)
		}
		return fmt.Errorf("scenario %q failed: %d expectation(s) did not hold", sc.Name, len(trace.Mismatches))
	}
	return nil
}

func printTrace(out io.Writer, trace scenario.Trace, output string) error {
	if output == outputJSON {
		return writeJSON(out, trace)
	}
	if trace.Name != "" {
		fmt.Fprintf(out, "Scenario: %s\n", trace.Name)
	}
	fmt.Fprintf(out, "%-6s %-8s %-7s %-10s %-7s %-11s %-11s %-8s %s\n",
		"CYCLE", "STANDBY", "APFAIL", "SUPPORTED", "LIMITS", "MANAGER", "SENSOR", "HEALTHY", "PULLUP")
	for _, rec := range trace.Records {
		fmt.Fprintf(out, "%-6d %s %-11s %-11s %-8s %s\n",
			rec.Cycle, formatInputs(rec.Inputs), rec.After.Manager, rec.After.Sensor, onOff(rec.After.SensorHealthy), onOff(rec.Pullup))
	}
	return nil
}
