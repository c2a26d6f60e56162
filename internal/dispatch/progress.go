// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// Reporter receives progress from a dispatch run. Advance is called from
// the lookup goroutines and must be safe for concurrent use.
type Reporter interface {
	Start(total int)
	Advance(done, total int, res types.Resolution)
	Finish()
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) Start(int)                         {}
func (NopReporter) Advance(int, int, types.Resolution) {}
func (NopReporter) Finish()                           {}

// LogReporter logs a progress line every Every completions and on the last.
type LogReporter struct {
	Logger zerolog.Logger
	Every  int
}

func (r LogReporter) Start(total int) {
	r.Logger.Info().Int("total", total).Msg("resolving identifiers")
}

func (r LogReporter) Advance(done, total int, res types.Resolution) {
	if res.Status == types.StatusError {
		r.Logger.Debug().Str("id", res.Identifier.String()).Str("reason", res.Reason).Msg("lookup error")
	}
	every := r.Every
	if every <= 0 {
		every = 100
	}
	if done%every == 0 || done == total {
		r.Logger.Info().Int("done", done).Int("total", total).Msg("progress")
	}
}

func (r LogReporter) Finish() {}
