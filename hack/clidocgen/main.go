// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// clidocgen generates the Markdown reference of the pullup CLI.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/edgelesssys/pullup/cli/cmd"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var seeAlsoRegexp = regexp.MustCompile(`(?s)### SEE ALSO\n.+?\n\n`)

func main() {
	if err := generate(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(out io.Writer) error {
	cobra.EnableCommandSorting = false
	rootCmd := cmd.NewRootCmd()
	rootCmd.DisableAutoGenTag = true

	cmdList := &bytes.Buffer{}
	body := &bytes.Buffer{}
	for _, c := range allSubCommands(rootCmd) {
		fullName, level := determineFullNameAndLevel(c)

		// 2 spaces of indentation per level
		fmt.Fprintf(cmdList, "%*s* [%v](#pullup-%v): %v\n", 2*level, "", c.Name(), fullName, c.Short)
		if err := doc.GenMarkdown(c, body); err != nil {
			return err
		}
	}

	// parent and child links add nothing to a flat reference
	cleanedBody := seeAlsoRegexp.ReplaceAll(body.Bytes(), nil)

	_, err := fmt.Fprintf(out, "Commands:\n\n%s\n%s", cmdList, cleanedBody)
	return err
}

func allSubCommands(cmd *cobra.Command) []*cobra.Command {
	var all []*cobra.Command
	for _, c := range cmd.Commands() {
		all = append(all, c)
		all = append(all, allSubCommands(c)...)
	}
	return all
}

func determineFullNameAndLevel(cmd *cobra.Command) (string, int) {
	name := cmd.Name()
	level := 0
	for cmd.HasParent() && cmd.Parent().Name() != "pullup" {
		cmd = cmd.Parent()
		name = cmd.Name() + "-" + name // '-' keeps the name usable as a Markdown anchor
		level++
	}
	return name, level
}
