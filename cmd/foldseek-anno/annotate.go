// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/foldseek-anno/internal/annotate"
	"github.com/pdiddy/foldseek-anno/internal/dispatch"
	"github.com/pdiddy/foldseek-anno/internal/logging"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// annotateFlags binds configuration keys to annotate's flags.
var annotateFlags = map[string]string{
	"input":                "input",
	"output":               "output",
	"source":               "database",
	"leniency":             "leniency",
	"target_column":        "target-column",
	"header":               "header",
	"extended":             "extended",
	"http.timeout":         "timeout",
	"retry.attempts":       "retries",
	"retry.delay":          "retry-delay",
	"retry.max_delay":      "max-retry-delay",
	"dispatch.concurrency": "concurrency",
	"dispatch.rate_limit":  "rate-limit",
}

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Append a functional description to every search hit",
	Long: `Annotate reads a Foldseek result table, resolves each unique target
identifier once, and writes the table with one description column appended.

Rows whose identifier is unknown to the source get NOT_FOUND; lookups that
keep failing after retries get ERROR. Rows without a recognizable identifier
get NA (--leniency lenient), are dropped (skip), or abort the run (strict).
The output file is replaced only after every row has been written.`,
	Example: `  foldseek-anno annotate -i hits.m8 -o hits.annotated.tsv -d alphafold
  foldseek-anno annotate -i hits.m8 -o out.tsv -d pdb --extended --header -c 8`,
	RunE: runAnnotate,
}

func init() {
	f := annotateCmd.Flags()
	f.StringP("input", "i", "", "Foldseek result file (tab-separated)")
	f.StringP("output", "o", "", "output file")
	f.StringP("database", "d", "auto", "identifier source: alphafold, pdb, mgnify, esm, or auto")
	f.String("leniency", "lenient", "malformed row policy: lenient, skip, or strict")
	f.Int("target-column", 1, "0-based column holding the target identifier")
	f.Bool("header", false, "write a header line")
	f.Bool("extended", false, "append title, sequence length, Pfam, InterPro and GO columns")
	f.Duration("timeout", 30*time.Second, "per-request HTTP timeout")
	f.Uint("retries", 3, "attempts per lookup, including the first")
	f.Duration("retry-delay", time.Second, "initial retry backoff, doubled on each retry")
	f.Duration("max-retry-delay", 10*time.Second, "maximum retry backoff")
	f.IntP("concurrency", "c", 20, "maximum lookups in flight")
	f.Float64("rate-limit", 0, "maximum lookups per second across all workers (0 = unlimited)")
	f.Bool("no-probe", false, "skip the reachability check before resolving")
	f.BoolP("quiet", "q", false, "suppress progress and summary output")

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	loader, err := newLoader(cmd, annotateFlags)
	if err != nil {
		return err
	}
	if noProbe, _ := cmd.Flags().GetBool("no-probe"); noProbe {
		loader.Set("dispatch.probe", false)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := loader.Validate(cfg); err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return annotateFile(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet)
}

// annotateFile runs the pipeline for cfg, printing progress and the summary
// to stderr and stdout unless quiet.
func annotateFile(ctx context.Context, cfg types.AnnotateConfig, stdout, stderr io.Writer, quiet bool) error {
	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: stderr})
	if quiet && log.GetLevel() < zerolog.WarnLevel {
		log = log.Level(zerolog.WarnLevel)
	}

	var reporter dispatch.Reporter
	switch {
	case quiet:
		reporter = dispatch.NopReporter{}
	case cfg.Log.Format == "json":
		reporter = dispatch.LogReporter{Logger: log, Every: 100}
	default:
		reporter = newProgressReporter(stderr)
	}

	summary, err := annotate.Run(ctx, cfg, annotate.Deps{Reporter: reporter, Logger: log})
	if err != nil {
		return err
	}
	if !quiet {
		printSummary(stdout, summary, cfg.Output)
	}
	return nil
}
