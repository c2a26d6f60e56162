// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records reads tab-separated search results, extracts the structure
// identifier from each row, and builds the unique identifier index used to
// issue one lookup per identifier.
package records

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

const (
	// DefaultTargetColumn is the Foldseek m8 "target" column.
	DefaultTargetColumn = 1

	// DefaultDelimiter separates input and output columns.
	DefaultDelimiter = "\t"

	maxLineBytes = 4 * 1024 * 1024
)

// ParseOptions configures row parsing.
type ParseOptions struct {
	// Source selects the identifier pattern(s) to apply.
	Source types.SourceType

	// TargetColumn is the 0-based column holding the identifier token.
	TargetColumn int

	// Delimiter separates columns; defaults to a tab.
	Delimiter string

	// SkipComments ignores lines starting with '#'.
	SkipComments bool
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.TargetColumn < 0 {
		o.TargetColumn = DefaultTargetColumn
	}
	return o
}

// Reader produces the rows of one input file.
type Reader struct {
	path string
	opts ParseOptions
}

// NewReader returns a Reader for path. The file is not opened until the
// sequence returned by All is iterated.
func NewReader(path string, opts ParseOptions) *Reader {
	return &Reader{path: path, opts: opts.withDefaults()}
}

// Path returns the input file path.
func (r *Reader) Path() string { return r.path }

// All returns the rows in file order. Each iteration re-opens and re-reads
// the file, so the sequence can be consumed more than once but never resumes
// mid-stream. Blank lines are not rows. Read failures are yielded as a
// *types.IOError and end the sequence.
func (r *Reader) All() iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		f, err := os.Open(r.path)
		if err != nil {
			yield(types.Row{}, &types.IOError{Op: "open", Path: r.path, Err: err})
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)

		line, index := 0, 0
		for sc.Scan() {
			line++
			text := strings.TrimRight(sc.Text(), "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			if r.opts.SkipComments && strings.HasPrefix(text, "#") {
				continue
			}
			row := r.parseLine(text, line, index)
			index++
			if !yield(row, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(types.Row{}, &types.IOError{Op: "read", Path: r.path, Err: err})
		}
	}
}

func (r *Reader) parseLine(text string, line, index int) types.Row {
	fields := strings.Split(text, r.opts.Delimiter)
	row := types.Row{Index: index, Line: line, Fields: fields}

	if r.opts.TargetColumn >= len(fields) {
		row.Malformed = &types.MalformedRowError{
			Line:   line,
			Reason: fmt.Sprintf("row has %d columns, target column %d missing", len(fields), r.opts.TargetColumn),
		}
		return row
	}

	token := fields[r.opts.TargetColumn]
	id, ok := Extract(r.opts.Source, token)
	if !ok {
		row.Malformed = &types.MalformedRowError{
			Line:   line,
			Token:  token,
			Reason: fmt.Sprintf("no %s identifier in target column", r.opts.Source),
		}
		return row
	}
	row.Identifier = id
	return row
}
