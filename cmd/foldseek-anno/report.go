// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/pdiddy/foldseek-anno/internal/annotate"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// progressReporter prints one status line per lookup. Lines are
// serialized; lookups only wait for each other while a line is printed.
type progressReporter struct {
	mu  sync.Mutex
	w   io.Writer
	ok  *color.Color
	nf  *color.Color
	err *color.Color
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{
		w:   w,
		ok:  color.New(color.FgGreen),
		nf:  color.New(color.FgYellow),
		err: color.New(color.FgRed),
	}
}

func (p *progressReporter) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "resolving %d unique identifier(s)\n", total)
}

func (p *progressReporter) Advance(done, total int, res types.Resolution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch res.Status {
	case types.StatusResolved:
		p.ok.Fprintf(p.w, "[%d/%d] resolved:  %s\n", done, total, res.Identifier)
	case types.StatusNotFound:
		p.nf.Fprintf(p.w, "[%d/%d] not found: %s\n", done, total, res.Identifier)
	default:
		p.err.Fprintf(p.w, "[%d/%d] error:     %s (%s)\n", done, total, res.Identifier, res.Reason)
	}
}

func (p *progressReporter) Finish() {}

// printSummary prints the run summary, highlighting rows that did not
// resolve.
func printSummary(w io.Writer, s annotate.Summary, output string) {
	s.Fprint(w)
	if s.Errors > 0 {
		color.New(color.FgRed).Fprintf(w, "%d row(s) marked %s; rerun to retry them\n", s.Errors, types.PlaceholderError)
	}
	fmt.Fprintf(w, "wrote %s\n", output)
}
