/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/luizarrieira/radio-lrr-iv/internal/durations"
	"github.com/luizarrieira/radio-lrr-iv/internal/storage"
)

var durationsOutput string

var durationsCmd = &cobra.Command{
	Use:   "durations <dir>",
	Short: "Generate the narration duration table",
	Long: `Read every .wav file in a directory and record its length in milliseconds.

The table is keyed by file name and is used to fit narrations inside
intro and outro zones. By default it is written to the object store under
RADIO_DURATIONS_PATH.

Examples:
  # Store the table where the station reads it
  radiolrr durations ./media/narracoes

  # Write it to a local file instead
  radiolrr durations ./media/narracoes --output duracoes_narracoes.json
`,
	Args: cobra.ExactArgs(1),
	RunE: runDurations,
}

func init() {
	durationsCmd.Flags().StringVarP(&durationsOutput, "output", "o", "", "Write the table to this file instead of the object store")
	rootCmd.AddCommand(durationsCmd)
}

func runDurations(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	table, err := durations.Generate(args[0], logger)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}

	if durationsOutput != "" {
		if err := os.WriteFile(durationsOutput, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", durationsOutput, err)
		}
		fmt.Printf("Wrote %d durations to %s\n", table.Len(), durationsOutput)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := store.Put(ctx, cfg.DurationsKey, data); err != nil {
		return fmt.Errorf("store table: %w", err)
	}
	fmt.Printf("Stored %d durations under %s\n", table.Len(), cfg.DurationsKey)
	return nil
}
