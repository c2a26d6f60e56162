// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the run configuration from defaults, a YAML file,
// FOLDSEEK_ANNO_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/foldseek-anno/internal/resolve"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// FOLDSEEK_ANNO_DISPATCH_CONCURRENCY.
	EnvPrefix = "FOLDSEEK_ANNO"

	configName = "foldseek-anno"
)

// ErrInvalid matches every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Defaults maps configuration keys to their default values.
var Defaults = map[string]any{
	"source":               "auto",
	"leniency":             string(types.LeniencyLenient),
	"target_column":        1,
	"header":               false,
	"extended":             false,
	"http.timeout":         30 * time.Second,
	"http.user_agent":      "foldseek-anno/0.1",
	"retry.attempts":       3,
	"retry.delay":          time.Second,
	"retry.max_delay":      10 * time.Second,
	"endpoints.alphafold":  resolve.DefaultAlphaFoldBase,
	"endpoints.pdb":        resolve.DefaultPDBBase,
	"endpoints.mgnify":     resolve.DefaultMGnifyBase,
	"dispatch.concurrency": 20,
	"dispatch.rate_limit":  0.0,
	"dispatch.probe":       true,
	"log.level":            "info",
	"log.format":           "console",
	"input":                "",
	"output":               "",
}

// Loader reads and validates configuration.
type Loader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

// NewLoader returns a loader that reads configFile, or searches
// ./foldseek-anno.yaml and ~/.config/foldseek-anno/config.yaml when
// configFile is empty.
func NewLoader(configFile string) (*Loader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("creating validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range Defaults {
		v.SetDefault(key, val)
	}

	return &Loader{viper: v, validator: validate, translator: trans}, nil
}

// BindFlags binds each configuration key to the named flag. Only flags the
// user set override file and environment values.
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("binding %s: no flag --%s", key, name)
		}
		if err := l.viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding %s to --%s: %w", key, name, err)
		}
	}
	return nil
}

// Set overrides a key for this loader only.
func (l *Loader) Set(key string, value any) {
	l.viper.Set(key, value)
}

// ConfigFileUsed returns the file that was read, or "" if none.
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

// Load reads the config file, if any, and decodes the merged settings.
// A missing file in the search path is not an error; an explicitly named
// file that cannot be read is.
func (l *Loader) Load() (types.AnnotateConfig, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.AnnotateConfig{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg types.AnnotateConfig
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return types.AnnotateConfig{}, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.Leniency = types.Leniency(strings.ToLower(strings.TrimSpace(string(cfg.Leniency))))
	return cfg, nil
}

// Validate checks a full annotation run configuration.
func (l *Loader) Validate(cfg types.AnnotateConfig) error {
	return l.check(cfg)
}

// ValidateSources checks only the settings needed to contact the sources,
// for commands that neither read input nor write output.
func (l *Loader) ValidateSources(cfg types.AnnotateConfig) error {
	for _, section := range []any{cfg.HTTP, cfg.Retry, cfg.Endpoints, cfg.Dispatch, cfg.Log} {
		if err := l.check(section); err != nil {
			return err
		}
	}
	if _, err := cfg.SourceType(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (l *Loader) check(s any) error {
	err := l.validator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(l.translator))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
}
