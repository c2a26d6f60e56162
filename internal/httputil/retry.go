// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retry policy and HTTP failure classification
// shared by every resolver.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
)

const (
	defaultAttempts = 3
	defaultDelay    = 1 * time.Second
	defaultMaxDelay = 10 * time.Second
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Policy is a bounded retry-with-backoff policy. The delay before retry n
// (0-based) is Delay * 2^n, capped at MaxDelay. At most Attempts exchanges
// are made in total.
type Policy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration

	// Logger receives one debug line per retry. Zero value discards.
	Logger zerolog.Logger
}

// DefaultPolicy returns 3 attempts starting at 1 s and capped at 10 s.
func DefaultPolicy() Policy {
	return Policy{Attempts: defaultAttempts, Delay: defaultDelay, MaxDelay: defaultMaxDelay, Logger: zerolog.Nop()}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts == 0 {
		p.Attempts = defaultAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaultDelay
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	return p
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted. It returns the number of attempts made and the
// last error. If ctx ends during a backoff wait, ctx.Err() is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	p = p.withDefaults()

	attempts := 0
	var lastErr error
	err := retry.Do(
		func() error {
			attempts++
			lastErr = fn(ctx)
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			p.Logger.Debug().Uint("attempt", n+1).Err(err).Msg("transient failure, backing off")
		}),
	)
	if err == nil {
		return attempts, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		return attempts, ctxErr
	}
	return attempts, lastErr
}

// IsTransient reports whether err is worth retrying: timeouts, connection
// resets and refusals, HTTP 5xx and 429.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsUnreachable reports whether err means the host could not be contacted
// at all: DNS failure, connection refused, or no route.
func IsUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// IsHostNotFound reports a DNS lookup that definitively found no such host,
// which no amount of retrying will fix.
func IsHostNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// Reason renders err as the short reason recorded in a resolution.
func Reason(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return fmt.Sprintf("HTTP %d", se.Code)
	case IsTimeout(err):
		return "timeout"
	default:
		return err.Error()
	}
}
