// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotate

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/foldseek-anno/internal/records"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// m8Columns names the twelve default Foldseek output columns.
var m8Columns = []string{
	"Query_ID", "Target_ID", "Identity", "Length", "Mismatches", "GapOpen",
	"Q_start", "Q_end", "S_start", "S_end", "E-value", "BitScore",
}

const descriptionColumn = "Description"

// extendedColumns follow the description column when Extended is set.
var extendedColumns = []string{"Title", "Seq_Length", "Pfam_Annotations", "InterPro_Annotations", "GO_Terms"}

// WriteOptions controls the output layout.
type WriteOptions struct {
	Leniency  types.Leniency
	Header    bool
	Extended  bool
	Delimiter string
}

// Counts tallies the data rows written, by outcome.
type Counts struct {
	Rows     int
	Resolved int
	NotFound int
	Errors   int
	Skipped  int
}

// Write re-reads rows in order and writes each one with its description
// appended. Output goes to a temporary file next to path that replaces path
// only when every row has been written. On failure path is left untouched.
func Write(path string, rows iter.Seq2[types.Row, error], table types.ResolutionTable, opts WriteOptions) (Counts, error) {
	if opts.Delimiter == "" {
		opts.Delimiter = records.DefaultDelimiter
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".foldseek-anno-*.tmp")
	if err != nil {
		return Counts{}, &types.IOError{Op: "create", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	counts, writeErr := writeRows(tmp, rows, table, opts)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return Counts{}, writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return Counts{}, &types.IOError{Op: "close", Path: tmpPath, Err: closeErr}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Counts{}, &types.IOError{Op: "rename", Path: path, Err: err}
	}
	return counts, nil
}

func writeRows(f *os.File, rows iter.Seq2[types.Row, error], table types.ResolutionTable, opts WriteOptions) (Counts, error) {
	var counts Counts
	w := bufio.NewWriter(f)
	wroteHeader := false

	emit := func(fields []string) error {
		if _, err := w.WriteString(strings.Join(fields, opts.Delimiter) + "\n"); err != nil {
			return &types.IOError{Op: "write", Path: f.Name(), Err: err}
		}
		return nil
	}

	for row, err := range rows {
		if err != nil {
			return Counts{}, err
		}

		if opts.Header && !wroteHeader {
			if err := emit(headerFor(len(row.Fields), opts.Extended)); err != nil {
				return Counts{}, err
			}
			wroteHeader = true
		}

		if row.Malformed != nil {
			switch opts.Leniency {
			case types.LeniencyStrict:
				return Counts{}, row.Malformed
			case types.LeniencySkip:
				counts.Skipped++
				continue
			}
			counts.Skipped++
			counts.Rows++
			if err := emit(outputRow(row.Fields, types.PlaceholderNA, nil, opts.Extended)); err != nil {
				return Counts{}, err
			}
			continue
		}

		res, ok := table[row.Identifier]
		if !ok {
			res = types.Failed(row.Identifier, "unresolved")
		}
		switch res.Status {
		case types.StatusResolved:
			counts.Resolved++
		case types.StatusNotFound:
			counts.NotFound++
		default:
			counts.Errors++
		}
		counts.Rows++
		if err := emit(outputRow(row.Fields, sanitize(res.Cell()), res.Annotation, opts.Extended)); err != nil {
			return Counts{}, err
		}
	}

	if err := w.Flush(); err != nil {
		return Counts{}, &types.IOError{Op: "write", Path: f.Name(), Err: err}
	}
	return counts, nil
}

func outputRow(fields []string, desc string, ann *types.Annotation, extended bool) []string {
	out := make([]string, 0, len(fields)+1+len(extendedColumns))
	out = append(out, fields...)
	out = append(out, desc)
	if extended {
		out = append(out, extendedCells(ann)...)
	}
	return out
}

func extendedCells(ann *types.Annotation) []string {
	if ann == nil {
		ann = &types.Annotation{}
	}
	title := sanitize(ann.Title)
	if title == "" {
		title = "N/A"
	}
	length := "N/A"
	if ann.SequenceLength > 0 {
		length = strconv.Itoa(ann.SequenceLength)
	}
	return []string{title, length, formatTerms(ann.Pfam), formatTerms(ann.InterPro), formatTerms(ann.GOTerms)}
}

// formatTerms renders terms as "ACC (Name); ACC (Name)", or "None".
func formatTerms(terms []types.Term) string {
	if len(terms) == 0 {
		return "None"
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		if t.Name == "" {
			parts[i] = t.Accession
			continue
		}
		parts[i] = fmt.Sprintf("%s (%s)", t.Accession, t.Name)
	}
	return sanitize(strings.Join(parts, "; "))
}

// headerFor names n input columns using the m8 defaults, then the
// appended columns.
func headerFor(n int, extended bool) []string {
	h := make([]string, 0, n+1+len(extendedColumns))
	for i := 0; i < n; i++ {
		if i < len(m8Columns) {
			h = append(h, m8Columns[i])
		} else {
			h = append(h, fmt.Sprintf("Col_%d", i+1))
		}
	}
	h = append(h, descriptionColumn)
	if extended {
		h = append(h, extendedColumns...)
	}
	return h
}

// sanitize keeps a value on one line and inside one column.
func sanitize(s string) string {
	if !strings.ContainsAny(s, "\t\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
