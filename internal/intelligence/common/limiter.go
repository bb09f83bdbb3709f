package common

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// retryBackoff is the pause before the single retry of a failed call.
const retryBackoff = 200 * time.Millisecond

// Throttled wraps a backend with the call discipline every tier shares: at
// most maxConcurrent in-flight calls, a global request rate, a per-call
// timeout, and exactly one retry for transient failures.  Cancellation is
// never retried.
type Throttled struct {
	backend     Extractor
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	callTimeout time.Duration
	logger      logging.Logger
}

// NewThrottled wraps backend with the limits from cfg.  Zero or negative
// limits fall back to permissive defaults.
func NewThrottled(backend Extractor, cfg config.ExtractionConfig, log logging.Logger) *Throttled {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Throttled{
		backend:     backend,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:     rate.NewLimiter(rate.Limit(rps), maxConcurrent),
		callTimeout: callTimeout,
		logger:      log.Named("throttle"),
	}
}

func (t *Throttled) Name() string { return t.backend.Name() }

// Extract acquires a concurrency slot and a rate token, then runs the call
// with the per-call timeout.  A failed first attempt is retried once unless
// the parent context is done.
func (t *Throttled) Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return ExtractionResult{}, err
	}
	defer t.sem.Release(1)

	if err := t.limiter.Wait(ctx); err != nil {
		return ExtractionResult{}, err
	}

	result, err := t.attempt(ctx, req)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		// the caller gave up; do not burn a retry on its behalf
		return ExtractionResult{}, err
	}

	t.logger.Warn("external call failed, retrying once",
		logging.String("document_id", req.DocumentID), logging.Err(err))

	select {
	case <-ctx.Done():
		return ExtractionResult{}, ctx.Err()
	case <-time.After(retryBackoff):
	}

	result, err = t.attempt(ctx, req)
	if err != nil {
		return ExtractionResult{}, errors.Wrap(err, errors.ErrCodeExternalCallFailed,
			"external extraction failed after retry")
	}
	return result, nil
}

func (t *Throttled) attempt(ctx context.Context, req ExtractionRequest) (ExtractionResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	defer cancel()
	return t.backend.Extract(callCtx, req)
}
