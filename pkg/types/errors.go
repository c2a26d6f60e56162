// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow matches any *MalformedRowError via errors.Is.
	ErrMalformedRow = errors.New("malformed row")

	// ErrFatalConfig matches any *FatalConfigError via errors.Is.
	ErrFatalConfig = errors.New("fatal configuration error")

	// ErrNotFound reports that a source confirmed an identifier does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSelectorNotFound reports that a scraped page no longer has the
	// expected structure.
	ErrSelectorNotFound = errors.New("selector-not-found")
)

// MalformedRowError reports an input row without a recognizable identifier.
type MalformedRowError struct {
	Line   int
	Token  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Token)
}

func (e *MalformedRowError) Is(target error) bool {
	return target == ErrMalformedRow
}

// IOError wraps a local file access failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FatalConfigError reports that a selected source is unreachable or
// misconfigured. It aborts the whole run.
type FatalConfigError struct {
	Source SourceType
	Err    error
}

func (e *FatalConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("fatal configuration error: %v", e.Err)
	}
	return fmt.Sprintf("source %s unusable: %v", e.Source, e.Err)
}

func (e *FatalConfigError) Unwrap() error { return e.Err }

func (e *FatalConfigError) Is(target error) bool {
	return target == ErrFatalConfig
}
