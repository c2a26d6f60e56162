// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns structure identifiers into functional descriptions.
// Each source (AlphaFold DB, RCSB PDB, MGnify/ESM Atlas) implements Resolver;
// all of them share one HTTP client setup and one retry policy.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/foldseek-anno/internal/httputil"
	"github.com/pdiddy/foldseek-anno/pkg/types"
)

// Default base URLs of the remote sources.
const (
	DefaultAlphaFoldBase = "https://alphafold.ebi.ac.uk"
	DefaultPDBBase       = "https://data.rcsb.org"
	DefaultMGnifyBase    = "https://www.ebi.ac.uk"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "foldseek-anno/0.1"
)

// Resolver resolves identifiers of one source type. Resolve never returns an
// error: failures are recorded in the Resolution. Probe reports whether the
// source is reachable at all.
type Resolver interface {
	Source() types.SourceType
	Resolve(ctx context.Context, id types.Identifier) types.Resolution
	Probe(ctx context.Context) error
}

// Options configures resolvers.
type Options struct {
	HTTP      types.HTTPConfig
	Retry     httputil.Policy
	Endpoints types.EndpointsConfig
	Logger    zerolog.Logger
}

// OptionsFromConfig builds resolver options from a run configuration.
func OptionsFromConfig(cfg types.AnnotateConfig, log zerolog.Logger) Options {
	return Options{
		HTTP: cfg.HTTP,
		Retry: httputil.Policy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
			MaxDelay: cfg.Retry.MaxDelay,
			Logger:   log,
		},
		Endpoints: cfg.Endpoints,
		Logger:    log,
	}
}

// New builds the resolver for one concrete source type.
func New(source types.SourceType, opts Options) (Resolver, error) {
	switch source {
	case types.SourceAlphaFold:
		return NewAlphaFold(opts), nil
	case types.SourcePDB:
		return NewPDB(opts), nil
	case types.SourceMGnify:
		return NewMGnify(opts), nil
	default:
		return nil, fmt.Errorf("no resolver for source %q", source)
	}
}

// ForSelector builds every resolver a selector needs, keyed by source type.
func ForSelector(selector types.SourceType, opts Options) (map[types.SourceType]Resolver, error) {
	out := make(map[types.SourceType]Resolver)
	for _, s := range selector.Expand() {
		r, err := New(s, opts)
		if err != nil {
			return nil, err
		}
		out[s] = r
	}
	return out, nil
}

// client is the HTTP plumbing shared by all resolvers.
type client struct {
	source types.SourceType
	http   *resty.Client
	policy httputil.Policy
	log    zerolog.Logger
}

func newClient(source types.SourceType, base string, opts Options) *client {
	timeout := opts.HTTP.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := opts.HTTP.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	log := opts.Logger.With().Str("source", string(source)).Logger()

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("User-Agent", ua).
		SetLogger(restyLogger{log: log})

	policy := opts.Retry
	policy.Logger = log
	return &client{source: source, http: rc, policy: policy, log: log}
}

// get issues one GET with the retry policy applied. A 404 is reported as
// types.ErrNotFound and any other non-2xx as *httputil.StatusError.
func (c *client) get(ctx context.Context, path string, prepare func(*resty.Request)) ([]byte, int, error) {
	var body []byte
	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		req := c.http.R().SetContext(ctx)
		if prepare != nil {
			prepare(req)
		}
		resp, err := req.Get(path)
		if err != nil {
			return fmt.Errorf("GET %s: %w", path, err)
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusNotFound:
			return types.ErrNotFound
		case code < 200 || code > 299:
			return &httputil.StatusError{Code: code, URL: resp.Request.URL}
		}
		body = resp.Body()
		return nil
	})
	return body, attempts, err
}

// probe checks that the source answers HTTP at all. Any status below 500
// counts as reachable.
func (c *client) probe(ctx context.Context, path string) error {
	_, _, err := c.get(ctx, path, nil)
	if err == nil || errors.Is(err, types.ErrNotFound) {
		return nil
	}
	var se *httputil.StatusError
	if errors.As(err, &se) && se.Code < 500 {
		return nil
	}
	if httputil.IsUnreachable(err) {
		err = fmt.Errorf("endpoint %s unreachable: %w", c.http.BaseURL, err)
	}
	return &types.FatalConfigError{Source: c.source, Err: err}
}

// failure converts a fetch error into a resolution.
func (c *client) failure(id types.Identifier, attempts int, err error) types.Resolution {
	var res types.Resolution
	switch {
	case errors.Is(err, types.ErrNotFound):
		res = types.NotFound(id)
	default:
		res = types.Failed(id, httputil.Reason(err))
		if httputil.IsHostNotFound(err) {
			res.Fatal = &types.FatalConfigError{Source: c.source, Err: err}
		}
		c.log.Warn().Str("id", id.ID).Int("attempts", attempts).Err(err).Msg("lookup failed")
	}
	res.Attempts = attempts
	return res
}

// restyLogger routes resty's internal messages into zerolog.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
