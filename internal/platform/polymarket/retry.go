package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// RetryPolicy wraps a single fetch suspend point with bounded retries and a
// linearly increasing backoff (BaseDelay * attempt). The same policy is used
// by market discovery and by the history collector.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the collector defaults: three attempts with a
// half-second base delay.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}

// parseError marks a response body that could not be decoded. Upstream
// occasionally serves a transient HTML error page, so parse failures are
// retried like network errors.
type parseError struct{ err error }

func (e *parseError) Error() string { return "parse response: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// httpError carries a non-2xx status separate from the domain sentinel so
// the retry classifier can distinguish 5xx from 4xx.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

// retryable classifies an error as transient. Connection failures, timeouts,
// parse errors, 429 and 5xx are retried; other 4xx are permanent: the
// request itself is wrong and retrying cannot fix it.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *httpError
	if errors.As(err, &he) {
		return he.status == 429 || he.status >= 500
	}
	var pe *parseError
	if errors.As(err, &pe) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrBadRequest) || errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	// Remaining transport-level failures (connection refused/reset wrapped
	// by net/http) arrive as *url.Error satisfying net.Error above; anything
	// else is treated as transient network trouble by default.
	return true
}

// do runs fn under the policy. fn is attempted at most MaxAttempts times;
// between attempts the policy sleeps BaseDelay*attempt, honouring ctx.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			return lastErr
		}
		delay := p.BaseDelay * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
