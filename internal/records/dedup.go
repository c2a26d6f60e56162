// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"iter"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// Index is the unique identifier set of an input file.
type Index struct {
	// Identifiers lists each unique identifier once, in first-seen order.
	Identifiers []types.Identifier

	// Rows maps each identifier to the indices of the rows referencing it.
	Rows map[types.Identifier][]int

	// Total is the number of data rows read.
	Total int

	// Malformed counts rows without a recognizable identifier.
	Malformed int
}

// Len returns the number of unique identifiers, which is also the number of
// lookups the dispatcher issues.
func (x *Index) Len() int { return len(x.Identifiers) }

// Deduplicate consumes every row and collects the unique identifiers.
// Under LeniencyStrict the first malformed row is returned as the error;
// otherwise malformed rows are only counted. Read errors are returned as-is.
func Deduplicate(rows iter.Seq2[types.Row, error], policy types.Leniency) (*Index, error) {
	x := &Index{Rows: make(map[types.Identifier][]int)}

	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		x.Total++

		if row.Malformed != nil {
			if policy == types.LeniencyStrict {
				return nil, row.Malformed
			}
			x.Malformed++
			continue
		}

		if _, seen := x.Rows[row.Identifier]; !seen {
			x.Identifiers = append(x.Identifiers, row.Identifier)
		}
		x.Rows[row.Identifier] = append(x.Rows[row.Identifier], row.Index)
	}
	return x, nil
}
