// Package relay holds the pending-request table that bridges the privileged
// automation service and the sandboxed UI client. The two sides have no direct
// channel: tools enqueue work only the client can perform (tab creation,
// screen capture), the client drains the table over HTTP and posts
// completions back.
package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind enumerates the request types the sandboxed client knows how to fulfill.
type Kind string

const (
	KindOpenTab    Kind = "open-tab"
	KindScreenshot Kind = "screenshot"
)

// Status of a pending request. The transition is one-directional:
// pending -> completed, exactly once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Payload carries kind-specific request data. Open-tab requests set URL and
// Label; screenshot requests carry nothing.
type Payload struct {
	URL   string `json:"url,omitempty"`
	Label string `json:"label,omitempty"`
}

// Result carries kind-specific completion data set by the fulfiller.
type Result struct {
	CaptureRef string `json:"captureRef,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// Request is one entry in the relay table.
type Request struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Payload   Payload   `json:"payload"`
	Status    Status    `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Completed reports whether the fulfiller has finished this request.
func (r Request) Completed() bool { return r.Status == StatusCompleted }

// Queue is the in-memory relay table. The tool path is the sole producer and
// the sole remover (via Take); the client poller is the sole writer of
// completed status (via Complete). All map mutations happen under one mutex,
// so the single-writer-per-key discipline holds without finer locking.
// Entries do not survive a process restart; durability is out of scope.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*Request
	logger  *zap.Logger
}

// NewQueue creates an empty relay table.
func NewQueue(logger *zap.Logger) *Queue {
	return &Queue{
		entries: make(map[string]*Request),
		logger:  logger.Named("relay"),
	}
}

// Enqueue inserts a pending request and returns its id immediately.
func (q *Queue) Enqueue(kind Kind, payload Payload) string {
	req := &Request{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.entries[req.ID] = req
	q.mu.Unlock()

	q.logger.Debug("Request enqueued", zap.String("id", req.ID), zap.String("kind", string(kind)))
	return req.ID
}

// Poll returns a snapshot of every current entry, regardless of status, in
// creation order. The external fulfiller is expected to process all entries
// from one snapshot before polling again.
func (q *Queue) Poll() []Request {
	q.mu.Lock()
	snapshot := make([]Request, 0, len(q.entries))
	for _, req := range q.entries {
		snapshot = append(snapshot, *req)
	}
	q.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})
	return snapshot
}

// Complete transitions a request from pending to completed, recording either a
// result or an error message. Unknown ids and repeat completions are silent
// no-ops: the first write wins, which keeps client retries idempotent.
func (q *Queue) Complete(id string, result Result, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.entries[id]
	if !ok {
		q.logger.Debug("Completion for unknown request ignored", zap.String("id", id))
		return
	}
	if req.Status == StatusCompleted {
		q.logger.Debug("Repeat completion ignored", zap.String("id", id))
		return
	}

	req.Status = StatusCompleted
	req.Result = &result
	req.Error = errMsg
	q.logger.Debug("Request completed", zap.String("id", id), zap.String("error", errMsg))
}

// Take removes the request and returns it. The creating tool calls this after
// observing completion, or on timeout to discard the entry. A given id is
// returned at most once.
func (q *Queue) Take(id string) (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.entries[id]
	if !ok {
		return Request{}, false
	}
	delete(q.entries, id)
	return *req, true
}

// Get returns a copy of the request without removing it.
func (q *Queue) Get(id string) (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.entries[id]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Len reports the number of entries currently in the table.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
