/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/bumptv/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bumptv version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bumptv %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
