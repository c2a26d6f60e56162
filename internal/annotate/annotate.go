// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotate runs the annotation pipeline: read and deduplicate the
// input rows, resolve every unique identifier, and write the augmented table.
package annotate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/foldseek-anno/internal/dispatch"
	"github.com/pdiddy/foldseek-anno/internal/records"
	"github.com/pdiddy/foldseek-anno/internal/resolve"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// Summary holds the outcome of one run. Row counts are per output row, so
// an identifier shared by several rows is counted once per row.
type Summary struct {
	Rows     int
	Unique   int
	Resolved int
	NotFound int
	Errors   int
	Skipped  int
	Duration time.Duration
}

// HasErrors reports whether any row ended with the ERROR placeholder.
func (s Summary) HasErrors() bool {
	return s.Errors > 0
}

// Fprint writes the batch summary to w.
func (s Summary) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\nAnnotation summary: %d resolved, %d not found, %d errors, %d skipped (rows: %d, unique identifiers: %d, %s)\n",
		s.Resolved, s.NotFound, s.Errors, s.Skipped, s.Rows, s.Unique, s.Duration.Round(time.Millisecond))
}

// Deps carries the collaborators of a run. Zero fields get defaults built
// from the configuration.
type Deps struct {
	// Resolvers overrides the resolvers built from cfg, keyed by source.
	Resolvers map[types.SourceType]resolve.Resolver

	Reporter dispatch.Reporter
	Logger   zerolog.Logger
}

// Run annotates cfg.Input into cfg.Output. Nothing is written unless every
// stage succeeds.
func Run(ctx context.Context, cfg types.AnnotateConfig, deps Deps) (Summary, error) {
	start := time.Now()
	log := deps.Logger

	source, err := cfg.SourceType()
	if err != nil {
		return Summary{}, &types.FatalConfigError{Err: err}
	}
	leniency, err := types.ParseLeniency(string(cfg.Leniency))
	if err != nil {
		return Summary{}, &types.FatalConfigError{Err: err}
	}

	reader := records.NewReader(cfg.Input, records.ParseOptions{
		Source:       source,
		TargetColumn: cfg.TargetColumn,
	})

	index, err := records.Deduplicate(reader.All(), leniency)
	if err != nil {
		return Summary{}, err
	}
	log.Info().Str("input", cfg.Input).Int("rows", index.Total).Int("unique", index.Len()).
		Int("malformed", index.Malformed).Msg("input indexed")

	resolvers := deps.Resolvers
	if resolvers == nil {
		resolvers, err = resolve.ForSelector(source, resolve.OptionsFromConfig(cfg, log))
		if err != nil {
			return Summary{}, &types.FatalConfigError{Source: source, Err: err}
		}
	}

	d := &dispatch.Dispatcher{
		Concurrency:  cfg.Dispatch.Concurrency,
		RateLimitRPS: cfg.Dispatch.RateLimitRPS,
		SkipProbe:    !cfg.Dispatch.Probe,
		Reporter:     deps.Reporter,
		Logger:       log,
	}
	table, err := d.Run(ctx, index.Identifiers, resolvers)
	if err != nil {
		return Summary{}, err
	}

	counts, err := Write(cfg.Output, reader.All(), table, WriteOptions{
		Leniency: leniency,
		Header:   cfg.Header,
		Extended: cfg.Extended,
	})
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Rows:     counts.Rows,
		Unique:   index.Len(),
		Resolved: counts.Resolved,
		NotFound: counts.NotFound,
		Errors:   counts.Errors,
		Skipped:  counts.Skipped,
		Duration: time.Since(start),
	}
	log.Info().Str("output", cfg.Output).Int("rows", s.Rows).Dur("elapsed", s.Duration).Msg("output written")
	return s, nil
}
