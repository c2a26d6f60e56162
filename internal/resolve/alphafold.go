// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

const (
	alphaFoldPredictionPath = "/api/prediction/{id}"

	// noDescription is recorded when an entry exists but carries no text.
	noDescription = "No description found"
)

// alphaFoldEntry captures the fields we need from one AlphaFold DB
// prediction record.
type alphaFoldEntry struct {
	UniprotAccession       string `json:"uniprotAccession"`
	UniprotDescription     string `json:"uniprotDescription"`
	Gene                   string `json:"gene"`
	OrganismScientificName string `json:"organismScientificName"`
	SequenceLength         int    `json:"uniprotEnd"`
}

// AlphaFoldResolver looks up UniProt accessions in the AlphaFold DB
// prediction API.
type AlphaFoldResolver struct {
	c *client
}

// NewAlphaFold returns a resolver for AlphaFold DB identifiers.
func NewAlphaFold(opts Options) *AlphaFoldResolver {
	base := opts.Endpoints.AlphaFold
	if base == "" {
		base = DefaultAlphaFoldBase
	}
	return &AlphaFoldResolver{c: newClient(types.SourceAlphaFold, base, opts)}
}

// Source returns types.SourceAlphaFold.
func (r *AlphaFoldResolver) Source() types.SourceType { return types.SourceAlphaFold }

// Probe checks that the AlphaFold DB API answers.
func (r *AlphaFoldResolver) Probe(ctx context.Context) error {
	return r.c.probe(ctx, "/api/")
}

// Resolve fetches the prediction record for id and returns its UniProt
// description.
func (r *AlphaFoldResolver) Resolve(ctx context.Context, id types.Identifier) types.Resolution {
	body, attempts, err := r.c.get(ctx, alphaFoldPredictionPath, func(req *resty.Request) {
		req.SetPathParam("id", id.ID).SetHeader("Accept", "application/json")
	})
	if err != nil {
		return r.c.failure(id, attempts, err)
	}

	entries, err := parseAlphaFold(body)
	if err != nil {
		res := types.Failed(id, "parse: "+err.Error())
		res.Attempts = attempts
		return res
	}
	if len(entries) == 0 {
		res := types.NotFound(id)
		res.Attempts = attempts
		return res
	}

	e := entries[0]
	desc := strings.TrimSpace(e.UniprotDescription)
	if desc == "" {
		desc = noDescription
	}
	ann := &types.Annotation{Title: e.Gene, SequenceLength: e.SequenceLength}
	if e.Gene != "" && e.OrganismScientificName != "" {
		ann.Title = e.Gene + " (" + e.OrganismScientificName + ")"
	}

	res := types.Resolved(id, desc, ann)
	res.Attempts = attempts
	return res
}

// parseAlphaFold accepts either the documented JSON array or a single
// object, which some API versions return.
func parseAlphaFold(body []byte) ([]alphaFoldEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var e alphaFoldEntry
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, err
		}
		return []alphaFoldEntry{e}, nil
	}
	var entries []alphaFoldEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
