package httpclient

import (
	"context"
	"sync"

	"github.com/gaborage/go-authclient/httpclient/internal/tracking"
	"github.com/gaborage/go-authclient/logger"
)

type refreshResult struct {
	token string
	err   error
}

// refreshCoordinator collapses concurrent 401s into a single RefreshToken
// call. The first eligible failure refreshes; the rest queue behind it and are
// released in FIFO order once the refresh settles.
type refreshCoordinator struct {
	refresher TokenRefresher
	detector  ExpiryDetector
	logger    logger.Logger
	tracker   *tracking.Tracker
	replay    func(ctx context.Context, cl *call) (*Response, error)

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func newRefreshCoordinator(
	refresher TokenRefresher,
	detector ExpiryDetector,
	log logger.Logger,
	tracker *tracking.Tracker,
	replay func(ctx context.Context, cl *call) (*Response, error),
) *refreshCoordinator {
	return &refreshCoordinator{
		refresher: refresher,
		detector:  detector,
		logger:    log,
		tracker:   tracker,
		replay:    replay,
	}
}

// eligible reports whether err should trigger a refresh for cl. The marker
// check precedes IsTokenExpired so a replayed request is never reclassified.
func (rc *refreshCoordinator) eligible(cl *call, err error) bool {
	if cl == nil || cl.skipRefresh || cl.refreshed {
		return false
	}
	if !IsUnauthorized(err) {
		return false
	}
	return rc.detector.IsTokenExpired(err)
}

// handle returns err unchanged when the failure is not refreshable. Otherwise
// it returns the outcome of replaying cl with a fresh credential.
func (rc *refreshCoordinator) handle(ctx context.Context, cl *call, err error) (*Response, error) {
	if !rc.eligible(cl, err) {
		return nil, err
	}
	cl.refreshed = true

	rc.mu.Lock()
	if rc.refreshing {
		ch := make(chan refreshResult, 1)
		rc.waiters = append(rc.waiters, ch)
		position := len(rc.waiters)
		rc.mu.Unlock()
		return rc.wait(ctx, cl, err, ch, position)
	}
	rc.refreshing = true
	rc.mu.Unlock()

	return rc.refresh(ctx, cl, err)
}

func (rc *refreshCoordinator) wait(ctx context.Context, cl *call, original error, ch <-chan refreshResult, position int) (*Response, error) {
	withSpan(ctx, rc.logger.Debug()).
		Str("method", cl.method).
		Str("url", cl.url).
		Int("position", position).
		Msg("Queued behind in-flight credential refresh")

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, NewRefreshError("credential refresh failed", res.err, original)
		}
		cl.token = res.token
		return rc.replay(ctx, cl)
	case <-ctx.Done():
		return nil, NewRefreshError("gave up waiting for credential refresh", ctx.Err(), original)
	}
}

func (rc *refreshCoordinator) refresh(ctx context.Context, cl *call, original error) (*Response, error) {
	withSpan(ctx, rc.logger.Info()).
		Str("method", cl.method).
		Str("url", cl.url).
		Msg("Credential expired, refreshing")

	token, err := rc.callRefresher(ctx)
	waiters := rc.drain()

	switch {
	case err != nil:
		withSpan(ctx, rc.logger.Warn()).Err(err).Int("waiters", len(waiters)).Msg("Credential refresh failed")
		rc.tracker.RecordRefresh(ctx, tracking.OutcomeFailure, len(waiters))
		release(waiters, refreshResult{err: err})
		return nil, NewRefreshError("credential refresh failed", err, original)

	case token == "":
		withSpan(ctx, rc.logger.Warn()).Int("waiters", len(waiters)).Msg("Credential refresh returned no credential")
		rc.tracker.RecordRefresh(ctx, tracking.OutcomeEmpty, len(waiters))
		release(waiters, refreshResult{err: ErrEmptyCredential})
		return nil, original

	default:
		withSpan(ctx, rc.logger.Info()).Int("waiters", len(waiters)).Msg("Credential refreshed")
		rc.tracker.RecordRefresh(ctx, tracking.OutcomeSuccess, len(waiters))
		release(waiters, refreshResult{token: token})
		cl.token = token
		return rc.replay(ctx, cl)
	}
}

// callRefresher runs the refresh detached from the trigger's cancellation;
// queued requests depend on its result.
func (rc *refreshCoordinator) callRefresher(ctx context.Context) (token string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rc.drainAndRelease(refreshResult{err: NewRefreshError("token refresher panicked", nil, nil)})
			panic(r)
		}
	}()
	return rc.refresher.RefreshToken(context.WithoutCancel(ctx))
}

// drain takes the queue and returns the coordinator to idle. Requests failing
// after this point start a new cycle.
func (rc *refreshCoordinator) drain() []chan refreshResult {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	waiters := rc.waiters
	rc.waiters = nil
	rc.refreshing = false
	return waiters
}

func (rc *refreshCoordinator) drainAndRelease(res refreshResult) {
	release(rc.drain(), res)
}

// release delivers res in enqueue order. Channels are buffered so this
// never blocks, even for waiters whose context has ended.
func release(waiters []chan refreshResult, res refreshResult) {
	for _, ch := range waiters {
		ch <- res
	}
}
