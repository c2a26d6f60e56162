// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/foldseek-anno/internal/config"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"malformed", fmt.Errorf("parse: %w", &types.MalformedRowError{Line: 3, Reason: "x"}), exitMalformedRow},
		{"io", &types.IOError{Op: "open", Path: "in.m8", Err: os.ErrNotExist}, exitIO},
		{"fatal config", &types.FatalConfigError{Source: types.SourcePDB, Err: errors.New("down")}, exitFatalConfig},
		{"invalid config", fmt.Errorf("%w: input is a required field", config.ErrInvalid), exitFatalConfig},
		{"other", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func alphaFoldServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/prediction/Q9Y6K9" {
			w.Write([]byte(`[{"uniprotDescription":"Ras/Rap GTPase-activating protein"}]`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(t *testing.T, base string) types.AnnotateConfig {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "hits.m8")
	require.NoError(t, os.WriteFile(in, []byte(
		"q1\tAF-Q9Y6K9-F1-model_v4\t0.9\t100\t10\t0\t1\t100\t1\t100\t1e-20\t200\n"+
			"q1\tAF-P00000-F1-model_v4\t0.5\t100\t50\t2\t1\t100\t1\t100\t1e-5\t80\n"), 0o644))
	return types.AnnotateConfig{
		Input:        in,
		Output:       filepath.Join(dir, "out.tsv"),
		Source:       "alphafold",
		Leniency:     types.LeniencyLenient,
		TargetColumn: 1,
		HTTP:         types.HTTPConfig{Timeout: time.Second, UserAgent: "test"},
		Retry:        types.RetryConfig{Attempts: 1, Delay: time.Millisecond, MaxDelay: time.Millisecond},
		Endpoints:    types.EndpointsConfig{AlphaFold: base, PDB: base, MGnify: base},
		Dispatch:     types.DispatchConfig{Concurrency: 2, Probe: true},
		Log:          types.LogConfig{Level: "error", Format: "json"},
	}
}

func TestAnnotateFile(t *testing.T) {
	ts := alphaFoldServer(t)
	cfg := testConfig(t, ts.URL)
	cfg.Log.Format = "console"

	var stdout, stderr bytes.Buffer
	require.NoError(t, annotateFile(context.Background(), cfg, &stdout, &stderr, false))

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "\tRas/Rap GTPase-activating protein"))
	assert.True(t, strings.HasSuffix(lines[1], "\t"+types.PlaceholderNotFound))

	assert.Contains(t, stdout.String(), "1 resolved, 1 not found, 0 errors, 0 skipped")
	assert.Contains(t, stdout.String(), "wrote "+cfg.Output)
	assert.Contains(t, stderr.String(), "resolving 2 unique identifier(s)")
}

func TestAnnotateFileJSONProgress(t *testing.T) {
	ts := alphaFoldServer(t)
	cfg := testConfig(t, ts.URL)
	cfg.Log.Level = "info"

	var stdout, stderr bytes.Buffer
	require.NoError(t, annotateFile(context.Background(), cfg, &stdout, &stderr, false))
	assert.Contains(t, stderr.String(), `"message":"resolving identifiers"`)
	assert.Contains(t, stderr.String(), `"done":2`)
}

func TestAnnotateFileQuiet(t *testing.T) {
	ts := alphaFoldServer(t)
	cfg := testConfig(t, ts.URL)

	var stdout, stderr bytes.Buffer
	require.NoError(t, annotateFile(context.Background(), cfg, &stdout, &stderr, true))
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
	assert.FileExists(t, cfg.Output)
}

func TestProbeSources(t *testing.T) {
	ts := alphaFoldServer(t)
	cfg := testConfig(t, ts.URL)

	var out bytes.Buffer
	require.NoError(t, probeSources(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "alphafold")
	assert.Contains(t, out.String(), "ok")

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	cfg = testConfig(t, closed.URL)
	cfg.Source = "auto"

	out.Reset()
	err := probeSources(context.Background(), cfg, &out)
	assert.ErrorIs(t, err, types.ErrFatalConfig)
	assert.Equal(t, exitFatalConfig, exitCode(err))
	assert.Contains(t, out.String(), "unreachable")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "foldseek-anno dev\n", out.String())
}

func TestConfigCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("foldseek-anno.yaml", []byte("dispatch:\n  concurrency: 7\n"), 0o644))
	t.Setenv("FOLDSEEK_ANNO_LENIENCY", "skip")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "foldseek-anno.yaml\n")
	assert.Contains(t, out.String(), "concurrency: 7")
	assert.Contains(t, out.String(), "leniency: skip")
	assert.Contains(t, out.String(), "timeout: 30s")
}

func TestAnnotateCommandStrictExitCode(t *testing.T) {
	ts := alphaFoldServer(t)
	cfg := testConfig(t, ts.URL)
	require.NoError(t, os.WriteFile(cfg.Input, []byte("q1\tnot-a-structure\n"), 0o644))

	rootCmd.SetArgs([]string{"annotate", "-i", cfg.Input, "-o", cfg.Output, "-d", "alphafold",
		"--leniency", "strict", "--quiet", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, exitMalformedRow, exitCode(err))
	assert.NoFileExists(t, cfg.Output)
}
