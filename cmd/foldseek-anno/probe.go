// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/foldseek-anno/internal/logging"
	"github.com/pdiddy/foldseek-anno/internal/resolve"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

var probeFlags = map[string]string{
	"source":         "database",
	"http.timeout":   "timeout",
	"retry.attempts": "retries",
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the selected sources are reachable",
	Long: `Probe sends one request to each selected source and reports whether it
answers. It exits non-zero when any source is unreachable, which is the same
check annotate performs before resolving.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringP("database", "d", "auto", "source to check: alphafold, pdb, mgnify, esm, or auto")
	probeCmd.Flags().Duration("timeout", 30*time.Second, "per-request HTTP timeout")
	probeCmd.Flags().Uint("retries", 3, "attempts per source, including the first")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	loader, err := newLoader(cmd, probeFlags)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := loader.ValidateSources(cfg); err != nil {
		return err
	}
	return probeSources(cmd.Context(), cfg, cmd.OutOrStdout())
}

// probeSources checks every source of cfg's selector and returns the first
// failure after reporting all of them.
func probeSources(ctx context.Context, cfg types.AnnotateConfig, w io.Writer) error {
	selector, err := cfg.SourceType()
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	resolvers, err := resolve.ForSelector(selector, resolve.OptionsFromConfig(cfg, log))
	if err != nil {
		return err
	}

	var firstErr error
	for _, source := range selector.Expand() {
		if err := resolvers[source].Probe(ctx); err != nil {
			color.New(color.FgRed).Fprintf(w, "%-10s unreachable: %v\n", source, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		color.New(color.FgGreen).Fprintf(w, "%-10s ok\n", source)
	}
	if firstErr != nil {
		return fmt.Errorf("probe failed: %w", firstErr)
	}
	return nil
}
