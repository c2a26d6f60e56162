// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package annotate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/foldseek-anno/internal/records"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

const m8Tail = "\t0.85\t120\t18\t0\t1\t120\t5\t124\t1.2e-30\t250"

func m8Row(query, target string) string {
	return query + "\t" + target + m8Tail
}

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hits.m8")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func lastColumn(line string) string {
	cols := strings.Split(line, "\t")
	return cols[len(cols)-1]
}

// --- Write ---

func afRows(t *testing.T, path string) *records.Reader {
	t.Helper()
	return records.NewReader(path, records.ParseOptions{Source: types.SourceAlphaFold, TargetColumn: 1})
}

var (
	idA = types.Identifier{Source: types.SourceAlphaFold, ID: "P69905"}
	idB = types.Identifier{Source: types.SourceAlphaFold, ID: "P68871"}
	idC = types.Identifier{Source: types.SourceAlphaFold, ID: "Q00000"}
)

func sampleTable() types.ResolutionTable {
	return types.ResolutionTable{
		idA: types.Resolved(idA, "Hemoglobin subunit alpha", &types.Annotation{
			Title: "HBA1", SequenceLength: 142,
			Pfam: []types.Term{{Accession: "PF00042", Name: "Globin"}},
		}),
		idB: types.Failed(idB, "HTTP 503"),
		idC: types.NotFound(idC),
	}
}

func TestWritePreservesRowsAndOrder(t *testing.T) {
	in := writeInput(t,
		m8Row("q1", "AF-P69905-F1-model_v4"),
		m8Row("q1", "AF-P68871-F1-model_v4"),
		m8Row("q2", "AF-Q00000-F1-model_v4"),
		m8Row("q3", "AF-P69905-F1-model_v4"),
	)
	out := filepath.Join(t.TempDir(), "out.tsv")

	counts, err := Write(out, afRows(t, in).All(), sampleTable(), WriteOptions{})
	require.NoError(t, err)

	lines := readLines(t, out)
	inLines := readLines(t, in)
	require.Len(t, lines, 4)
	for i, line := range lines {
		assert.Equal(t, inLines[i]+"\t"+lastColumn(line), line, "row %d keeps its fields", i)
		assert.Len(t, strings.Split(line, "\t"), 13)
	}
	assert.Equal(t, "Hemoglobin subunit alpha", lastColumn(lines[0]))
	assert.Equal(t, types.PlaceholderError, lastColumn(lines[1]))
	assert.Equal(t, types.PlaceholderNotFound, lastColumn(lines[2]))
	assert.Equal(t, "Hemoglobin subunit alpha", lastColumn(lines[3]))

	assert.Equal(t, Counts{Rows: 4, Resolved: 2, NotFound: 1, Errors: 1}, counts)
}

func TestWriteLeniency(t *testing.T) {
	in := writeInput(t,
		m8Row("q1", "AF-P69905-F1-model_v4"),
		m8Row("q2", "garbage"),
		m8Row("q3", "AF-P68871-F1-model_v4"),
	)

	t.Run("lenient", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.tsv")
		counts, err := Write(out, afRows(t, in).All(), sampleTable(), WriteOptions{Leniency: types.LeniencyLenient})
		require.NoError(t, err)

		lines := readLines(t, out)
		require.Len(t, lines, 3)
		assert.Equal(t, m8Row("q2", "garbage")+"\tNA", lines[1])
		assert.Equal(t, 3, counts.Rows)
		assert.Equal(t, 1, counts.Skipped)
	})

	t.Run("skip", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.tsv")
		counts, err := Write(out, afRows(t, in).All(), sampleTable(), WriteOptions{Leniency: types.LeniencySkip})
		require.NoError(t, err)

		lines := readLines(t, out)
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[1], "q3\t"))
		assert.Equal(t, 2, counts.Rows)
		assert.Equal(t, 1, counts.Skipped)
	})

	t.Run("strict leaves no output", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "out.tsv")
		_, err := Write(out, afRows(t, in).All(), sampleTable(), WriteOptions{Leniency: types.LeniencyStrict})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrMalformedRow)

		var mre *types.MalformedRowError
		require.ErrorAs(t, err, &mre)
		assert.Equal(t, 2, mre.Line)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no output and no temp file")
	})
}

func TestWriteFailureKeepsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.tsv")
	require.NoError(t, os.WriteFile(out, []byte("previous\n"), 0o644))

	missing := records.NewReader(filepath.Join(dir, "missing.m8"), records.ParseOptions{Source: types.SourceAlphaFold, TargetColumn: 1})
	_, err := Write(out, missing.All(), sampleTable(), WriteOptions{})

	var ioErr *types.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, []string{"previous"}, readLines(t, out))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteMissingDirectory(t *testing.T) {
	in := writeInput(t, m8Row("q1", "AF-P69905-F1-model_v4"))
	out := filepath.Join(t.TempDir(), "no", "such", "dir", "out.tsv")

	_, err := Write(out, afRows(t, in).All(), sampleTable(), WriteOptions{})
	var ioErr *types.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "create", ioErr.Op)
}

func TestWriteHeaderAndExtended(t *testing.T) {
	in := writeInput(t,
		m8Row("q1", "AF-P69905-F1-model_v4"),
		m8Row("q2", "AF-Q00000-F1-model_v4"),
	)
	out := filepath.Join(t.TempDir(), "out.tsv")

	_, err := Write(out, afRows(t, in).All(), sampleTable(), WriteOptions{Header: true, Extended: true})
	require.NoError(t, err)

	lines := readLines(t, out)
	require.Len(t, lines, 3)
	header := strings.Split(lines[0], "\t")
	assert.Equal(t, "Query_ID", header[0])
	assert.Equal(t, "BitScore", header[11])
	assert.Equal(t, []string{"Description", "Title", "Seq_Length", "Pfam_Annotations", "InterPro_Annotations", "GO_Terms"}, header[12:])

	first := strings.Split(lines[1], "\t")
	assert.Equal(t, []string{"Hemoglobin subunit alpha", "HBA1", "142", "PF00042 (Globin)", "None", "None"}, first[12:])

	second := strings.Split(lines[2], "\t")
	assert.Equal(t, []string{types.PlaceholderNotFound, "N/A", "N/A", "None", "None", "None"}, second[12:])
}

func TestWriteSanitizesDescriptions(t *testing.T) {
	in := writeInput(t, m8Row("q1", "AF-P69905-F1-model_v4"))
	out := filepath.Join(t.TempDir(), "out.tsv")
	table := types.ResolutionTable{idA: types.Resolved(idA, "line one\nline\ttwo", nil)}

	_, err := Write(out, afRows(t, in).All(), table, WriteOptions{})
	require.NoError(t, err)

	lines := readLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, "line one line two", lastColumn(lines[0]))
}

func TestHeaderForWideInput(t *testing.T) {
	h := headerFor(14, false)
	assert.Equal(t, "Col_13", h[12])
	assert.Equal(t, "Col_14", h[13])
	assert.Equal(t, descriptionColumn, h[14])
}

// --- Run ---

// alphaFoldStub serves canned prediction records and counts lookups per id.
type alphaFoldStub struct {
	mu    sync.Mutex
	calls map[string]int
	descs map[string]string
}

func (s *alphaFoldStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/prediction/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusOK)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, prefix)
	s.mu.Lock()
	s.calls[id]++
	s.mu.Unlock()

	desc, ok := s.descs[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`[{"uniprotAccession":"` + id + `","uniprotDescription":"` + desc + `"}]`))
}

func newStub(t *testing.T) (*alphaFoldStub, *httptest.Server) {
	t.Helper()
	stub := &alphaFoldStub{
		calls: make(map[string]int),
		descs: map[string]string{
			"Q9Y6K9": "Ras/Rap GTPase-activating protein",
			"P69905": "Hemoglobin subunit alpha",
		},
	}
	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)
	return stub, ts
}

func runConfig(input, output, base string) types.AnnotateConfig {
	return types.AnnotateConfig{
		Input:        input,
		Output:       output,
		Source:       "alphafold",
		Leniency:     types.LeniencyLenient,
		TargetColumn: 1,
		HTTP:         types.HTTPConfig{Timeout: 2 * time.Second, UserAgent: "test"},
		Retry:        types.RetryConfig{Attempts: 2, Delay: time.Millisecond, MaxDelay: time.Millisecond},
		Endpoints:    types.EndpointsConfig{AlphaFold: base, PDB: base, MGnify: base},
		Dispatch:     types.DispatchConfig{Concurrency: 4, Probe: true},
	}
}

func TestRunAlphaFoldScenario(t *testing.T) {
	_, ts := newStub(t)
	in := writeInput(t, m8Row("q1", "AF-Q9Y6K9-F1-model_v4"))
	out := filepath.Join(t.TempDir(), "out.tsv")

	s, err := Run(context.Background(), runConfig(in, out, ts.URL), Deps{})
	require.NoError(t, err)

	lines := readLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, m8Row("q1", "AF-Q9Y6K9-F1-model_v4")+"\tRas/Rap GTPase-activating protein", lines[0])
	assert.Equal(t, 1, s.Rows)
	assert.Equal(t, 1, s.Resolved)
}

func TestRunOneLookupPerIdentifier(t *testing.T) {
	stub, ts := newStub(t)
	in := writeInput(t,
		m8Row("q1", "AF-Q9Y6K9-F1-model_v4"),
		m8Row("q2", "AF-Q9Y6K9-F1-model_v4"),
		m8Row("q3", "AF-P69905-F1-model_v4"),
		m8Row("q4", "AF-Q9Y6K9-F1-model_v4"),
		m8Row("q5", "AF-A0A000-F1-model_v4"),
	)
	out := filepath.Join(t.TempDir(), "out.tsv")

	s, err := Run(context.Background(), runConfig(in, out, ts.URL), Deps{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Q9Y6K9": 1, "P69905": 1, "A0A000": 1}, stub.calls)
	assert.Equal(t, Summary{Rows: 5, Unique: 3, Resolved: 4, NotFound: 1, Duration: s.Duration}, s)

	lines := readLines(t, out)
	require.Len(t, lines, 5)
	assert.Equal(t, types.PlaceholderNotFound, lastColumn(lines[4]))
}

func TestRunIsIdempotent(t *testing.T) {
	_, ts := newStub(t)
	in := writeInput(t,
		m8Row("q1", "AF-Q9Y6K9-F1-model_v4"),
		m8Row("q2", "AF-P69905-F1-model_v4"),
		m8Row("q3", "not-an-id"),
	)
	dir := t.TempDir()
	out1 := filepath.Join(dir, "a.tsv")
	out2 := filepath.Join(dir, "b.tsv")

	_, err := Run(context.Background(), runConfig(in, out1, ts.URL), Deps{})
	require.NoError(t, err)
	_, err = Run(context.Background(), runConfig(in, out2, ts.URL), Deps{})
	require.NoError(t, err)

	a, err := os.ReadFile(out1)
	require.NoError(t, err)
	b, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunMalformedRowPolicies(t *testing.T) {
	_, ts := newStub(t)
	in := writeInput(t,
		m8Row("q1", "AF-Q9Y6K9-F1-model_v4"),
		m8Row("q2", "xyz123"),
	)

	t.Run("lenient writes NA", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.tsv")
		s, err := Run(context.Background(), runConfig(in, out, ts.URL), Deps{})
		require.NoError(t, err)

		lines := readLines(t, out)
		require.Len(t, lines, 2)
		assert.Equal(t, types.PlaceholderNA, lastColumn(lines[1]))
		assert.Equal(t, 1, s.Skipped)
	})

	t.Run("strict aborts without output", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.tsv")
		cfg := runConfig(in, out, ts.URL)
		cfg.Leniency = types.LeniencyStrict

		_, err := Run(context.Background(), cfg, Deps{})
		assert.ErrorIs(t, err, types.ErrMalformedRow)
		assert.NoFileExists(t, out)
	})
}

func TestRunUnreachableSource(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	in := writeInput(t, m8Row("q1", "AF-Q9Y6K9-F1-model_v4"))
	out := filepath.Join(t.TempDir(), "out.tsv")

	_, err := Run(context.Background(), runConfig(in, out, base), Deps{})
	assert.ErrorIs(t, err, types.ErrFatalConfig)
	assert.NoFileExists(t, out)
}

func TestRunMissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.tsv")
	_, err := Run(context.Background(), runConfig("/nonexistent/hits.m8", out, "http://localhost"), Deps{})

	var ioErr *types.IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.NoFileExists(t, out)
}

func TestRunInvalidSource(t *testing.T) {
	cfg := runConfig("in", "out", "http://localhost")
	cfg.Source = "uniprot"
	_, err := Run(context.Background(), cfg, Deps{})
	assert.ErrorIs(t, err, types.ErrFatalConfig)
}

func TestSummaryFprint(t *testing.T) {
	var buf bytes.Buffer
	Summary{Rows: 5, Unique: 3, Resolved: 3, NotFound: 1, Errors: 1, Skipped: 0, Duration: 1500 * time.Millisecond}.Fprint(&buf)
	assert.Contains(t, buf.String(), "3 resolved, 1 not found, 1 errors, 0 skipped")
	assert.Contains(t, buf.String(), "rows: 5, unique identifiers: 3")
	assert.Contains(t, buf.String(), "1.5s")
}
