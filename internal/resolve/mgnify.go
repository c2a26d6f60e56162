// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

const (
	mgnifyProteinPath = "/metagenomics/proteins/{id}/"

	// sequenceContainerID marks a rendered protein page. Its absence means
	// the page layout changed, not that the protein is unknown.
	sequenceContainerID = "proteinSequenceContainer"
	pfamDataScriptID    = "pfam-annotations-data"

	// noAnnotation is recorded for proteins without any Pfam domain.
	noAnnotation = "No functional annotation"
)

var (
	pfamAccession     = regexp.MustCompile(`PF\d{5}`)
	interProAccession = regexp.MustCompile(`IPR\d{6}`)
	goAccession       = regexp.MustCompile(`GO:\d{7}`)
)

// MGnifyResolver scrapes MGnify protein pages. ESM Atlas structures carry
// MGYP accessions, so it serves both.
type MGnifyResolver struct {
	c *client
}

// NewMGnify returns a resolver for MGnify/ESM Atlas identifiers.
func NewMGnify(opts Options) *MGnifyResolver {
	base := opts.Endpoints.MGnify
	if base == "" {
		base = DefaultMGnifyBase
	}
	return &MGnifyResolver{c: newClient(types.SourceMGnify, base, opts)}
}

// Source returns types.SourceMGnify.
func (r *MGnifyResolver) Source() types.SourceType { return types.SourceMGnify }

// Probe checks that the MGnify site answers.
func (r *MGnifyResolver) Probe(ctx context.Context) error {
	return r.c.probe(ctx, "/metagenomics/")
}

// Resolve fetches the protein page for id and summarizes its Pfam domains.
func (r *MGnifyResolver) Resolve(ctx context.Context, id types.Identifier) types.Resolution {
	body, attempts, err := r.c.get(ctx, mgnifyProteinPath, func(req *resty.Request) {
		req.SetPathParam("id", id.ID).SetHeader("Accept", "text/html")
	})
	if err != nil {
		return r.c.failure(id, attempts, err)
	}

	ann, err := scrapeMGnify(body)
	if err != nil {
		r.c.log.Warn().Str("id", id.ID).Err(err).Msg("page structure not recognized")
		res := types.Failed(id, "parse: "+err.Error())
		if errors.Is(err, types.ErrSelectorNotFound) {
			res.Reason = types.ErrSelectorNotFound.Error()
		}
		res.Attempts = attempts
		return res
	}

	desc := noAnnotation
	if len(ann.Pfam) > 0 {
		names := make([]string, 0, len(ann.Pfam))
		for _, t := range ann.Pfam {
			if t.Name != "" {
				names = append(names, t.Name)
			} else {
				names = append(names, t.Accession)
			}
		}
		desc = strings.Join(names, "; ")
	}

	res := types.Resolved(id, desc, ann)
	res.Attempts = attempts
	return res
}

var errSelector = fmt.Errorf("%w: #%s", types.ErrSelectorNotFound, sequenceContainerID)

// scrapeMGnify extracts the sequence length and the Pfam, InterPro and GO
// assignments from a protein page.
func scrapeMGnify(page []byte) (*types.Annotation, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	seq := findByID(doc, sequenceContainerID)
	if seq == nil {
		return nil, errSelector
	}

	ann := &types.Annotation{SequenceLength: len(stripSpace(textContent(seq)))}

	if script := findByID(doc, pfamDataScriptID); script != nil {
		var entries []struct {
			Accession string `json:"accession"`
			Name      string `json:"name"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(textContent(script))), &entries); err == nil {
			for _, e := range entries {
				ann.Pfam = appendTerm(ann.Pfam, types.Term{Accession: e.Accession, Name: strings.TrimSpace(e.Name)})
			}
		}
	}

	pfamFromTable := len(ann.Pfam) == 0
	for _, cells := range tableRows(doc) {
		for i, cell := range cells {
			name := ""
			if i+1 < len(cells) {
				name = cells[i+1]
			}
			if acc := pfamAccession.FindString(cell); acc != "" && pfamFromTable {
				ann.Pfam = appendTerm(ann.Pfam, types.Term{Accession: acc, Name: name})
			}
			if acc := interProAccession.FindString(cell); acc != "" {
				ann.InterPro = appendTerm(ann.InterPro, types.Term{Accession: acc, Name: name})
			}
			if acc := goAccession.FindString(cell); acc != "" {
				ann.GOTerms = appendTerm(ann.GOTerms, types.Term{Accession: acc, Name: name})
			}
		}
	}
	return ann, nil
}

// appendTerm appends t unless its accession is already present.
func appendTerm(terms []types.Term, t types.Term) []types.Term {
	for _, existing := range terms {
		if existing.Accession == t.Accession {
			return terms
		}
	}
	return append(terms, t)
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// tableRows returns the trimmed cell texts of every <tr> in document order.
func tableRows(n *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, strings.Join(strings.Fields(textContent(c)), " "))
				}
			}
			rows = append(rows, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return rows
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
