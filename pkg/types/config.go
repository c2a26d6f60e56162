package types

import (
	"fmt"
	"strings"
	"time"
)

// Leniency controls what happens to rows without a recognizable identifier.
type Leniency string

const (
	// LeniencyLenient passes malformed rows through with the NA placeholder.
	LeniencyLenient Leniency = "lenient"

	// LeniencySkip drops malformed rows from the output.
	LeniencySkip Leniency = "skip"

	// LeniencyStrict aborts the run on the first malformed row.
	LeniencyStrict Leniency = "strict"
)

// ParseLeniency normalizes a leniency policy name.
func ParseLeniency(s string) (Leniency, error) {
	switch l := Leniency(strings.ToLower(strings.TrimSpace(s))); l {
	case LeniencyLenient, LeniencySkip, LeniencyStrict:
		return l, nil
	case "":
		return LeniencyLenient, nil
	default:
		return "", fmt.Errorf("unknown leniency policy %q (want lenient, skip, or strict)", s)
	}
}

// HTTPConfig holds shared HTTP settings used by every resolver.
type HTTPConfig struct {
	// Timeout bounds a single HTTP exchange (one attempt).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "foldseek-anno/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
}

// RetryConfig bounds the retry-with-backoff policy applied to transient
// failures (timeouts, connection resets, 5xx, 429).
type RetryConfig struct {
	// Attempts is the total number of attempts including the first.
	Attempts uint `json:"attempts" yaml:"attempts" mapstructure:"attempts" validate:"min=1,max=10"`

	// Delay is the base backoff; it doubles each attempt.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gt=0"`

	// MaxDelay caps a single backoff sleep.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay" validate:"gtefield=Delay"`
}

// EndpointsConfig holds the base URLs of the remote sources. Tests point
// these at httptest servers.
type EndpointsConfig struct {
	AlphaFold string `json:"alphafold" yaml:"alphafold" mapstructure:"alphafold" validate:"required,url"`
	PDB       string `json:"pdb" yaml:"pdb" mapstructure:"pdb" validate:"required,url"`
	MGnify    string `json:"mgnify" yaml:"mgnify" mapstructure:"mgnify" validate:"required,url"`
}

// DispatchConfig controls the concurrent lookup fan-out.
type DispatchConfig struct {
	// Concurrency is the maximum number of in-flight lookups.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency" validate:"min=1,max=256"`

	// RateLimitRPS caps requests per second across all lookups. 0 disables it.
	RateLimitRPS float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`

	// Probe checks each selected source once before dispatching lookups.
	Probe bool `json:"probe" yaml:"probe" mapstructure:"probe"`
}

// LogConfig selects the diagnostic log level and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=console json"`
}

// AnnotateConfig holds all settings for one annotation run.
type AnnotateConfig struct {
	// Input is the tab-separated search result file (e.g. Foldseek .m8).
	Input string `json:"input" yaml:"input" mapstructure:"input" validate:"required,file"`

	// Output is the destination of the augmented table.
	Output string `json:"output" yaml:"output" mapstructure:"output" validate:"required,nefield=Input"`

	// Source selects the resolver: alphafold, pdb, mgnify (esm), or auto.
	Source string `json:"source" yaml:"source" mapstructure:"source" validate:"required,oneof=alphafold pdb mgnify esm auto"`

	// Leniency is the malformed-row policy.
	Leniency Leniency `json:"leniency" yaml:"leniency" mapstructure:"leniency" validate:"oneof=lenient skip strict"`

	// TargetColumn is the 0-based column holding the structure identifier.
	TargetColumn int `json:"target_column" yaml:"target_column" mapstructure:"target_column" validate:"gte=0"`

	// Header writes a header line before the data rows.
	Header bool `json:"header" yaml:"header" mapstructure:"header"`

	// Extended appends title, sequence length, Pfam, InterPro and GO
	// columns after the description column.
	Extended bool `json:"extended" yaml:"extended" mapstructure:"extended"`

	HTTP      HTTPConfig      `json:"http" yaml:"http" mapstructure:"http"`
	Retry     RetryConfig     `json:"retry" yaml:"retry" mapstructure:"retry"`
	Endpoints EndpointsConfig `json:"endpoints" yaml:"endpoints" mapstructure:"endpoints"`
	Dispatch  DispatchConfig  `json:"dispatch" yaml:"dispatch" mapstructure:"dispatch"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// SourceType returns the parsed Source selector.
func (c AnnotateConfig) SourceType() (SourceType, error) {
	return ParseSourceType(c.Source)
}
