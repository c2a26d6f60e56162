// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the foldseek-anno CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/foldseek-anno/internal/config"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit codes. Placeholders in the output never change the exit code.
const (
	exitOK = iota
	exitFailure
	exitMalformedRow
	exitIO
	exitFatalConfig
)

// rootCmd is the base command for the foldseek-anno CLI.
var rootCmd = &cobra.Command{
	Use:   "foldseek-anno",
	Short: "Annotate Foldseek search results with functional descriptions",
	Long: `foldseek-anno reads Foldseek tab-separated search results, extracts the
AlphaFold DB, PDB, or MGnify/ESM Atlas identifier of every target, resolves
each unique identifier once against its source, and writes the table back with
one description column appended.

Settings come from flags, FOLDSEEK_ANNO_* environment variables, and
./foldseek-anno.yaml or ~/.config/foldseek-anno/config.yaml, in that order of
precedence.

Exit codes: 0 success, 2 malformed row (strict), 3 file error,
4 unreachable or misconfigured source, 1 anything else.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./foldseek-anno.yaml or ~/.config/foldseek-anno/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "diagnostic log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "diagnostic log format (console, json)")
}

// newLoader builds a config loader with the given key-to-flag bindings of
// cmd, plus the persistent logging flags.
func newLoader(cmd *cobra.Command, keys map[string]string) (*config.Loader, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	loader, err := config.NewLoader(cfgFile)
	if err != nil {
		return nil, err
	}
	bindings := map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	}
	for k, v := range keys {
		bindings[k] = v
	}
	if err := loader.BindFlags(cmd.Flags(), bindings); err != nil {
		return nil, err
	}
	return loader, nil
}

// exitCode maps a command error onto the documented exit codes.
func exitCode(err error) int {
	var ioErr *types.IOError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, types.ErrMalformedRow):
		return exitMalformedRow
	case errors.As(err, &ioErr):
		return exitIO
	case errors.Is(err, types.ErrFatalConfig), errors.Is(err, config.ErrInvalid):
		return exitFatalConfig
	default:
		return exitFailure
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
