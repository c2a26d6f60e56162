// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"regexp"
	"strings"

	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// alphaFoldPattern matches AlphaFold DB model names:
// "AF-Q9Y6K9-F1-model_v4", "AF-A0A024R1R8-F1-model_v4.pdb.gz".
// Captures the UniProt accession.
var alphaFoldPattern = regexp.MustCompile(`^AF-([A-Za-z0-9]{6,10})-F\d+`)

// mgnifyPattern matches MGnify protein accessions, which ESM Atlas also uses:
// "MGYP000123456789", "esm_MGYP000123456789.pdb".
var mgnifyPattern = regexp.MustCompile(`MGYP\d+`)

// pdbPattern matches a four-character PDB code at the start of a target:
// "1abc", "1abc_A", "1abc-assembly1.cif.gz_B", "7XYZ.cif".
var pdbPattern = regexp.MustCompile(`^([0-9][A-Za-z0-9]{3})(?:$|[-_.])`)

// Extract pulls the identifier for source out of a target-column token.
// For SourceAuto it tries every concrete source in detection order.
func Extract(source types.SourceType, token string) (types.Identifier, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.Identifier{}, false
	}

	switch source {
	case types.SourceAlphaFold:
		if m := alphaFoldPattern.FindStringSubmatch(token); m != nil {
			return types.Identifier{Source: types.SourceAlphaFold, ID: strings.ToUpper(m[1])}, true
		}
	case types.SourceMGnify:
		if m := mgnifyPattern.FindString(token); m != "" {
			return types.Identifier{Source: types.SourceMGnify, ID: m}, true
		}
	case types.SourcePDB:
		if m := pdbPattern.FindStringSubmatch(token); m != nil {
			return types.Identifier{Source: types.SourcePDB, ID: strings.ToLower(m[1])}, true
		}
	case types.SourceAuto:
		for _, s := range types.Sources {
			if id, ok := Extract(s, token); ok {
				return id, true
			}
		}
	}
	return types.Identifier{}, false
}
