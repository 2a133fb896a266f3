package llmclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchJob is one unit of dispatch work: the request plus whatever the
// caller needs to correlate the result back to its batch.
type BatchJob struct {
	Request Request
}

// BatchOutcome pairs a batch's dispatch result with its index, so callers
// can persist raw_prompts/raw_responses artifacts and continue past
// individual batch failures per spec.md 4.9's "logs and continues" rule.
type BatchOutcome struct {
	BatchIndex int
	Response   *Response
	Err        error
}

// Dispatch runs jobs against svc with bounded concurrency, the way the
// teacher's reqchecks.go bounds an errgroup with SetLimit. A per-request
// timeout is enforced via context; a failed batch does not stop the
// others — its outcome simply carries Err.
func Dispatch(ctx context.Context, svc Service, jobs []BatchJob, concurrency int, perRequestTimeout time.Duration) []BatchOutcome {
	if concurrency < 1 {
		concurrency = 1
	}
	outcomes := make([]BatchOutcome, len(jobs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	var mu sync.Mutex
	for i, job := range jobs {
		i, job := i, job
		eg.Go(func() error {
			reqCtx := egCtx
			var cancel context.CancelFunc
			if perRequestTimeout > 0 {
				reqCtx, cancel = context.WithTimeout(egCtx, perRequestTimeout)
				defer cancel()
			}
			resp, err := svc.Complete(reqCtx, job.Request)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			mu.Lock()
			outcomes[i] = BatchOutcome{BatchIndex: job.Request.BatchIndex, Response: resp, Err: err}
			mu.Unlock()
			if err != nil {
				slog.WarnContext(ctx, "llmclient batch dispatch failed", "batch", job.Request.BatchIndex, "error", err)
			}
			return nil // per-batch errors are recorded, not propagated — the run continues
		})
	}
	_ = eg.Wait() // never returns an error: Go funcs above always return nil

	return outcomes
}

// ErrTimeout is wrapped by Dispatch around a provider's error when a
// request's context deadline is exceeded, for callers distinguishing
// timeouts from other transport errors.
var ErrTimeout = fmt.Errorf("llmclient: request timed out")
