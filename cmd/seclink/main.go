/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Command seclink is the CLI front end: keygen/server/client/stats
// subcommands over the core handshake and record-layer packages
// (spec.md §6, informative).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seclink",
		Short: "seclink - a mutually-authenticated point-to-point secure channel",
	}

	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seclink:", err)
		os.Exit(1)
	}
}
