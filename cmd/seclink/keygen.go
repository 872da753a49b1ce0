/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/zx2c4dev/seclink/keyfile"
	"github.com/zx2c4dev/seclink/keys"
)

func keygenCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen <file>",
		Short: "Generate a new long-term identity keypair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if !force && keyfile.Exists(path) {
				var overwrite bool
				prompt := huh.NewConfirm().
					Title(fmt.Sprintf("%s already exists. Overwrite?", path)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite)
				if err := prompt.Run(); err != nil {
					return fmt.Errorf("prompt failed: %w", err)
				}
				if !overwrite {
					return fmt.Errorf("not overwriting %s", path)
				}
			}

			kp, err := keys.GenerateLongKeypair()
			if err != nil {
				return fmt.Errorf("generate keypair: %w", err)
			}
			if err := keyfile.Save(path, kp); err != nil {
				return err
			}
			fmt.Printf("wrote new identity to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite without prompting")
	return cmd
}
