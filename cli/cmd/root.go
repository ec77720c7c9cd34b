// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgelesssys/pullup/cli/internal/cmd"
	"github.com/spf13/cobra"
)

var globalUsage = `The pullup CLI runs, inspects and verifies the pullup safety-latching controller.

Each control cycle samples four inputs (standby, apfail, supported, limits) and
decides whether the maneuver override ("pullup") is engaged.

To run a scripted sequence of cycles, run:

    $ pullup run scenario.yaml
`

// Execute starts the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pullup",
		Short:        "Run and verify the pullup safety-latching controller",
		Long:         globalUsage,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.NewRunCmd())
	rootCmd.AddCommand(cmd.NewStepCmd())
	rootCmd.AddCommand(cmd.NewTableCmd())
	rootCmd.AddCommand(cmd.NewVerifyCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	return rootCmd
}
