// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the foldseek-anno pipeline:
// source types, identifiers, input rows, resolutions, and run configuration.
package types

import (
	"fmt"
	"strings"
)

// SourceType names the structure database family an identifier belongs to.
type SourceType string

const (
	SourceAlphaFold SourceType = "alphafold"
	SourcePDB       SourceType = "pdb"
	SourceMGnify    SourceType = "mgnify"

	// SourceAuto is a selector, not a source: each row is classified
	// against every known pattern.
	SourceAuto SourceType = "auto"
)

// Sources lists the concrete source types in detection order.
var Sources = []SourceType{SourceAlphaFold, SourceMGnify, SourcePDB}

// ParseSourceType normalizes a selector string. "esm" and "esmatlas" are
// accepted as aliases for mgnify since ESM Atlas entries carry MGYP accessions.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alphafold", "afdb", "af":
		return SourceAlphaFold, nil
	case "pdb", "rcsb":
		return SourcePDB, nil
	case "mgnify", "esm", "esmatlas":
		return SourceMGnify, nil
	case "auto", "all":
		return SourceAuto, nil
	default:
		return "", fmt.Errorf("unknown source type %q (want alphafold, pdb, mgnify, esm, or auto)", s)
	}
}

// Expand returns the concrete source types covered by a selector.
func (s SourceType) Expand() []SourceType {
	if s == SourceAuto {
		return append([]SourceType(nil), Sources...)
	}
	return []SourceType{s}
}

// Identifier names one structure entry. Two identifiers are equal only when
// both the source and the raw id match.
type Identifier struct {
	Source SourceType `json:"source" yaml:"source"`
	ID     string     `json:"id" yaml:"id"`
}

func (id Identifier) String() string {
	return string(id.Source) + ":" + id.ID
}

// IsZero reports whether the identifier is unset.
func (id Identifier) IsZero() bool {
	return id.Source == "" && id.ID == ""
}

// Row is one data line of the input table.
type Row struct {
	// Index is the 0-based position among data rows.
	Index int

	// Line is the 1-based line number in the input file.
	Line int

	// Fields holds the original column values in input order.
	Fields []string

	// Identifier is the structure id extracted from the target column.
	// Zero when Malformed is set.
	Identifier Identifier

	// Malformed is non-nil when no identifier could be extracted.
	Malformed *MalformedRowError
}

// Status is the outcome of resolving one identifier.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// Output placeholders written in place of a description.
const (
	PlaceholderNA       = "NA"
	PlaceholderNotFound = "NOT_FOUND"
	PlaceholderError    = "ERROR"
)

// Term is an accession/name pair from a domain or ontology database
// (Pfam, InterPro, GO).
type Term struct {
	Accession string `json:"accession" yaml:"accession"`
	Name      string `json:"name" yaml:"name"`
}

// Annotation holds structured extras some sources return alongside the
// description.
type Annotation struct {
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	SequenceLength int    `json:"sequence_length,omitempty" yaml:"sequence_length,omitempty"`
	Pfam           []Term `json:"pfam,omitempty" yaml:"pfam,omitempty"`
	InterPro       []Term `json:"interpro,omitempty" yaml:"interpro,omitempty"`
	GOTerms        []Term `json:"go_terms,omitempty" yaml:"go_terms,omitempty"`
}

// Resolution is the result of looking up one identifier.
type Resolution struct {
	Identifier  Identifier  `json:"identifier" yaml:"identifier"`
	Status      Status      `json:"status" yaml:"status"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Reason      string      `json:"reason,omitempty" yaml:"reason,omitempty"`
	Annotation  *Annotation `json:"annotation,omitempty" yaml:"annotation,omitempty"`

	// Attempts is the number of HTTP exchanges made, retries included.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	// Fatal is set when the failure means the whole source is unusable.
	Fatal error `json:"-" yaml:"-"`
}

// Resolved builds a successful resolution.
func Resolved(id Identifier, description string, ann *Annotation) Resolution {
	return Resolution{Identifier: id, Status: StatusResolved, Description: description, Annotation: ann}
}

// NotFound builds a resolution for an identifier the source does not know.
func NotFound(id Identifier) Resolution {
	return Resolution{Identifier: id, Status: StatusNotFound, Reason: "not found"}
}

// Failed builds an error resolution carrying reason.
func Failed(id Identifier, reason string) Resolution {
	return Resolution{Identifier: id, Status: StatusError, Reason: reason}
}

// Cell returns the text written to the description column.
func (r Resolution) Cell() string {
	switch r.Status {
	case StatusResolved:
		return r.Description
	case StatusNotFound:
		return PlaceholderNotFound
	default:
		return PlaceholderError
	}
}

// ResolutionTable maps each unique identifier to its resolution.
type ResolutionTable map[Identifier]Resolution
