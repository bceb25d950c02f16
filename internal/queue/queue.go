// Package queue buffers user-submitted facilities while the remote write
// path is unavailable and replays them in FIFO order on reconnect.
package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/facility-discovery/internal/domain"
)

// SendFunc delivers one submission to the remote write path. It is expected
// to be idempotent per idempotency key: redelivering an already-accepted
// submission must not create a duplicate.
type SendFunc func(ctx context.Context, req domain.SubmissionRequest) error

// Queue is the bounded offline submission buffer. When full, new submissions
// are rejected with domain.ErrQueueFull rather than displacing an older one;
// a queued submission is never silently discarded.
type Queue struct {
	mu      sync.Mutex
	items   []domain.SubmissionRequest
	maxSize int
	logger  *slog.Logger
}

// New creates a Queue holding at most maxSize submissions.
func New(maxSize int, logger *slog.Logger) *Queue {
	return &Queue{maxSize: maxSize, logger: logger}
}

// Enqueue appends a submission, or returns domain.ErrQueueFull without
// altering the queue.
func (q *Queue) Enqueue(req domain.SubmissionRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		return domain.ErrQueueFull
	}
	q.items = append(q.items, req)
	return nil
}

// Len returns the number of queued submissions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queued submissions in FIFO order, for
// persistence.
func (q *Queue) Snapshot() []domain.SubmissionRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.SubmissionRequest, len(q.items))
	copy(out, q.items)
	return out
}

// Restore replaces the queue contents, truncating to capacity. Used when
// reloading a persisted queue at startup.
func (q *Queue) Restore(items []domain.SubmissionRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(items) > q.maxSize {
		items = items[:q.maxSize]
	}
	q.items = append(q.items[:0], items...)
}

// Drain attempts to deliver every queued submission via send, strictly in
// enqueue order. A failed item stays queued (keeping its position) and does
// not block delivery of later items; partial failure is reported, never
// returned as an error. Each retry passes the original idempotency key
// through unchanged, so a submission whose acknowledgment was lost is not
// duplicated once send starts succeeding.
func (q *Queue) Drain(ctx context.Context, send SendFunc) domain.DrainReport {
	q.mu.Lock()
	pending := make([]domain.SubmissionRequest, len(q.items))
	copy(pending, q.items)
	q.mu.Unlock()

	var report domain.DrainReport
	delivered := make(map[string]bool, len(pending))

	for _, req := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := send(ctx, req); err != nil {
			report.Failed++
			q.logger.Warn("submission delivery failed, keeping queued",
				"idempotency_key", req.IdempotencyKey,
				"name", req.Name,
				"error", err,
			)
			continue
		}
		report.Succeeded++
		delivered[req.IdempotencyKey] = true
	}

	q.mu.Lock()
	kept := q.items[:0]
	for _, req := range q.items {
		if !delivered[req.IdempotencyKey] {
			kept = append(kept, req)
		}
	}
	q.items = kept
	report.StillQueued = len(q.items)
	q.mu.Unlock()

	return report
}
