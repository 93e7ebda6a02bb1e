package httpclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gaborage/go-authclient/httpclient/internal/tracking"
	"github.com/gaborage/go-authclient/logger"
)

// DefaultRetryDelay is the backoff base when neither the call nor the client sets one.
const DefaultRetryDelay = time.Second

// retryPolicy re-dispatches failed calls with exponential backoff. It is only
// installed when the client has a positive default retry count.
type retryPolicy struct {
	logger   logger.Logger
	tracker  *tracking.Tracker
	sleep    func(ctx context.Context, d time.Duration) error
	dispatch func(ctx context.Context, cl *call) (*Response, error)
}

func newRetryPolicy(log logger.Logger, tracker *tracking.Tracker, dispatch func(ctx context.Context, cl *call) (*Response, error)) *retryPolicy {
	return &retryPolicy{
		logger:   log,
		tracker:  tracker,
		sleep:    sleepContext,
		dispatch: dispatch,
	}
}

// Backoff returns the delay before retry number attempt (zero based):
// base * 2^attempt, saturating at the largest Duration. A non-positive base
// selects DefaultRetryDelay and a negative attempt counts as zero.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultRetryDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 63 || base > time.Duration(math.MaxInt64)>>uint(attempt) {
		return time.Duration(math.MaxInt64)
	}
	return base << uint(attempt)
}

// run retries until the call succeeds, its budget is spent or the error is
// not worth retrying. Exhaustion returns the last error unchanged.
func (rp *retryPolicy) run(ctx context.Context, cl *call, err error) (*Response, error) {
	for {
		if cl.attempts >= cl.maxRetries || !retryable(err) {
			return nil, err
		}

		delay := Backoff(cl.retryDelay, cl.attempts)
		withSpan(ctx, rp.logger.Warn()).
			Err(err).
			Str("method", cl.method).
			Str("url", cl.url).
			Int("attempt", cl.attempts+1).
			Int("max_retries", cl.maxRetries).
			Dur("delay", delay).
			Msg("Retrying request")

		if serr := rp.sleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("retry aborted: %w (last error: %w)", serr, err)
		}
		cl.attempts++
		rp.tracker.RecordRetry(ctx, cl.method)

		var resp *Response
		resp, err = rp.dispatch(ctx, cl)
		if err == nil {
			return resp, nil
		}
	}
}

// retryable excludes failures a retry cannot fix: refresh failures, request
// construction errors and cancellation by the caller.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !IsErrorType(err, RefreshError) && !IsErrorType(err, ValidationError)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
