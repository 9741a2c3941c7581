// Package resilience provides the error taxonomy, retry, and circuit breaker
// used around external discovery calls.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// The discovery cascade distinguishes four failure classes. Transport and
// rate-limit errors are retried (the latter with longer backoff) and then
// degrade to a strategy failure. Configuration errors skip a strategy without
// counting as a failure. Empty results advance the cascade immediately.
var (
	// ErrNotConfigured marks a strategy or adapter whose required
	// credentials or flags are absent.
	ErrNotConfigured = eris.New("resilience: not configured")

	// ErrEmptyResult marks a search or pipeline stage that produced zero
	// usable results.
	ErrEmptyResult = eris.New("resilience: empty result")
)

// TransportError wraps an error from the network layer (timeout, DNS, 5xx).
type TransportError struct {
	Err        error
	StatusCode int
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a retryable transport failure.
func NewTransportError(err error, statusCode int) *TransportError {
	return &TransportError{Err: err, StatusCode: statusCode}
}

// RateLimitedError wraps an HTTP 429/403 response. Retried with a longer
// backoff than plain transport failures.
type RateLimitedError struct {
	Err        error
	StatusCode int
}

func (e *RateLimitedError) Error() string { return e.Err.Error() }
func (e *RateLimitedError) Unwrap() error { return e.Err }

// NewRateLimitedError wraps err as a rate-limit rejection.
func NewRateLimitedError(err error, statusCode int) *RateLimitedError {
	return &RateLimitedError{Err: err, StatusCode: statusCode}
}

// IsRateLimited reports whether the error chain contains a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsNotConfigured reports whether the error chain contains ErrNotConfigured.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsEmptyResult reports whether the error chain contains ErrEmptyResult.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}

// IsRetryable reports whether the error is worth another attempt: an explicit
// transport or rate-limit wrapper, a network timeout, a connection-level
// failure, or a message matching common transient patterns from HTTP clients.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsNotConfigured(err) || IsEmptyResult(err) {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	if IsRateLimited(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRateLimitStatus reports whether an HTTP status code should be treated as
// a rate-limit rejection. 403 is included because scraped search engines use
// it interchangeably with 429 for anti-bot blocks.
func IsRateLimitStatus(statusCode int) bool {
	return statusCode == 429 || statusCode == 403
}

// IsTransientStatus reports whether an HTTP status code indicates a
// server-side issue that is safe to retry.
func IsTransientStatus(statusCode int) bool {
	switch statusCode {
	case 408, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ClassifyStatus wraps err according to the response status code, or returns
// it unchanged when the status needs no retry semantics.
func ClassifyStatus(err error, statusCode int) error {
	switch {
	case err == nil:
		return nil
	case IsRateLimitStatus(statusCode):
		return NewRateLimitedError(err, statusCode)
	case IsTransientStatus(statusCode):
		return NewTransportError(err, statusCode)
	default:
		return err
	}
}
