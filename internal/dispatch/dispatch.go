// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch fans identifier lookups out over a bounded set of
// goroutines and collects the resolutions into a table.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/foldseek-anno/internal/resolve"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// DefaultConcurrency is the number of lookups in flight when none is set.
const DefaultConcurrency = 20

// Dispatcher resolves a set of unique identifiers concurrently.
type Dispatcher struct {
	// Concurrency bounds the lookups in flight. Zero means DefaultConcurrency.
	Concurrency int

	// RateLimitRPS is a global lookup rate shared by all goroutines.
	// Zero or less disables it.
	RateLimitRPS float64

	// SkipProbe disables the reachability check made before any lookup.
	SkipProbe bool

	Reporter Reporter
	Logger   zerolog.Logger
}

// Run resolves every identifier in ids exactly once. Per-identifier
// failures are recorded in the table. A FatalConfigError, from a probe or
// from a lookup, stops the run and no table is returned.
func (d *Dispatcher) Run(ctx context.Context, ids []types.Identifier, resolvers map[types.SourceType]resolve.Resolver) (types.ResolutionTable, error) {
	reporter := d.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	needed, err := requiredResolvers(ids, resolvers)
	if err != nil {
		return nil, err
	}
	if !d.SkipProbe {
		if err := probeAll(ctx, needed); err != nil {
			return nil, err
		}
	}

	limit := d.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var limiter *rate.Limiter
	if d.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.RateLimitRPS), 1)
	}

	d.Logger.Info().Int("identifiers", len(ids)).Int("concurrency", limit).
		Float64("rate_limit", d.RateLimitRPS).Msg("dispatching lookups")

	// Each goroutine owns exactly one slot.
	slots := make([]types.Resolution, len(ids))
	total := len(ids)
	var done atomic.Int64

	reporter.Start(total)
	defer reporter.Finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		r := resolvers[id.Source]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			res := r.Resolve(gctx, id)
			if res.Fatal != nil {
				d.Logger.Error().Str("id", id.String()).Err(res.Fatal).Msg("fatal lookup failure")
				return res.Fatal
			}
			slots[i] = res
			reporter.Advance(int(done.Add(1)), total, res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled parent can leave slots unfilled without any goroutine
	// reporting an error.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := make(types.ResolutionTable, len(ids))
	for i, id := range ids {
		table[id] = slots[i]
	}
	return table, nil
}

// requiredResolvers returns the resolvers that have at least one identifier
// to look up, in first-use order.
func requiredResolvers(ids []types.Identifier, resolvers map[types.SourceType]resolve.Resolver) ([]resolve.Resolver, error) {
	var out []resolve.Resolver
	seen := make(map[types.SourceType]bool)
	for _, id := range ids {
		if seen[id.Source] {
			continue
		}
		seen[id.Source] = true
		r, ok := resolvers[id.Source]
		if !ok || r == nil {
			return nil, &types.FatalConfigError{
				Source: id.Source,
				Err:    fmt.Errorf("no resolver configured for %s", id.Source),
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func probeAll(ctx context.Context, resolvers []resolve.Resolver) error {
	for _, r := range resolvers {
		if err := r.Probe(ctx); err != nil {
			var fatal *types.FatalConfigError
			if errors.As(err, &fatal) {
				return err
			}
			return &types.FatalConfigError{Source: r.Source(), Err: err}
		}
	}
	return nil
}
