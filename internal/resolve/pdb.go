// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

const pdbGraphQLPath = "/graphql"

// pdbEntryQuery asks the RCSB Data API for the entry title, the polymer
// entity descriptions, and their Pfam assignments.
const pdbEntryQuery = `query($id: String!) {
  entry(entry_id: $id) {
    struct { title }
    polymer_entities {
      rcsb_polymer_entity { pdbx_description }
      pfams {
        rcsb_pfam_accession
        rcsb_pfam_identifier
        rcsb_pfam_description
      }
    }
  }
}`

type pdbResponse struct {
	Data struct {
		Entry *pdbEntry `json:"entry"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type pdbEntry struct {
	Struct *struct {
		Title string `json:"title"`
	} `json:"struct"`
	PolymerEntities []struct {
		RCSBPolymerEntity *struct {
			Description string `json:"pdbx_description"`
		} `json:"rcsb_polymer_entity"`
		Pfams []struct {
			Accession   string `json:"rcsb_pfam_accession"`
			Identifier  string `json:"rcsb_pfam_identifier"`
			Description string `json:"rcsb_pfam_description"`
		} `json:"pfams"`
	} `json:"polymer_entities"`
}

// PDBResolver looks up four-character PDB codes through the RCSB Data API
// GraphQL endpoint.
type PDBResolver struct {
	c *client
}

// NewPDB returns a resolver for PDB identifiers.
func NewPDB(opts Options) *PDBResolver {
	base := opts.Endpoints.PDB
	if base == "" {
		base = DefaultPDBBase
	}
	return &PDBResolver{c: newClient(types.SourcePDB, base, opts)}
}

// Source returns types.SourcePDB.
func (r *PDBResolver) Source() types.SourceType { return types.SourcePDB }

// Probe checks that the RCSB Data API answers.
func (r *PDBResolver) Probe(ctx context.Context) error {
	return r.c.probe(ctx, "/")
}

// Resolve queries the entry for id. The description joins the distinct
// polymer entity descriptions, falling back to the entry title.
func (r *PDBResolver) Resolve(ctx context.Context, id types.Identifier) types.Resolution {
	vars, _ := json.Marshal(map[string]string{"id": strings.ToUpper(id.ID)})
	body, attempts, err := r.c.get(ctx, pdbGraphQLPath, func(req *resty.Request) {
		req.SetQueryParam("query", pdbEntryQuery).
			SetQueryParam("variables", string(vars)).
			SetHeader("Accept", "application/json")
	})
	if err != nil {
		return r.c.failure(id, attempts, err)
	}

	var pr pdbResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		res := types.Failed(id, "parse: "+err.Error())
		res.Attempts = attempts
		return res
	}

	var res types.Resolution
	switch {
	case pr.Data.Entry != nil:
		desc, ann := summarizePDB(pr.Data.Entry)
		res = types.Resolved(id, desc, ann)
	case len(pr.Errors) > 0:
		res = types.Failed(id, fmt.Sprintf("graphql: %s", pr.Errors[0].Message))
	default:
		res = types.NotFound(id)
	}
	res.Attempts = attempts
	return res
}

func summarizePDB(e *pdbEntry) (string, *types.Annotation) {
	ann := &types.Annotation{}
	if e.Struct != nil {
		ann.Title = strings.TrimSpace(e.Struct.Title)
	}

	var descs []string
	seenDesc := make(map[string]bool)
	seenPfam := make(map[string]bool)
	for _, pe := range e.PolymerEntities {
		if pe.RCSBPolymerEntity != nil {
			d := strings.TrimSpace(pe.RCSBPolymerEntity.Description)
			if d != "" && !seenDesc[d] {
				seenDesc[d] = true
				descs = append(descs, d)
			}
		}
		for _, pf := range pe.Pfams {
			if pf.Accession == "" || seenPfam[pf.Accession] {
				continue
			}
			seenPfam[pf.Accession] = true
			name := pf.Identifier
			if name == "" {
				name = pf.Description
			}
			ann.Pfam = append(ann.Pfam, types.Term{Accession: pf.Accession, Name: name})
		}
	}

	switch {
	case len(descs) > 0:
		return strings.Join(descs, "; "), ann
	case ann.Title != "":
		return ann.Title, ann
	default:
		return noDescription, ann
	}
}
