// Package toast keeps the short-lived notifications shown in the corner of
// the dashboard.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultDuration = 5 * time.Second
	MaxToasts       = 5
)

type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

type Toast struct {
	ID        string
	Message   string
	Type      Type
	Duration  time.Duration
	CreatedAt time.Time
}

// Remaining is the fraction of the toast's lifetime left at now, in [0, 1].
func (t Toast) Remaining(now time.Time) float64 {
	if t.Duration <= 0 {
		return 0
	}
	left := t.Duration - now.Sub(t.CreatedAt)
	switch {
	case left <= 0:
		return 0
	case left >= t.Duration:
		return 1
	}
	return float64(left) / float64(t.Duration)
}

// Expired reports whether the toast should be gone at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// Queue holds at most MaxToasts toasts, oldest first.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
	now    func() time.Time
}

// NewQueue creates an empty queue. now may be nil to use the wall clock.
func NewQueue(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{now: now}
}

// Add enqueues a toast and returns it. A zero duration means
// DefaultDuration. When the queue is full the oldest toast is evicted.
func (q *Queue) Add(message string, typ Type, duration time.Duration) Toast {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if typ == "" {
		typ = Info
	}
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Type:      typ,
		Duration:  duration,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	next := append(q.toasts[:len(q.toasts):len(q.toasts)], t)
	if len(next) > MaxToasts {
		next = next[len(next)-MaxToasts:]
	}
	q.toasts = next
	return t
}

// Dismiss removes the toast with id and reports whether it was present.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.toasts {
		if t.ID == id {
			next := make([]Toast, 0, len(q.toasts)-1)
			next = append(next, q.toasts[:i]...)
			q.toasts = append(next, q.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Expire drops every toast whose duration has elapsed and reports how many
// were removed.
func (q *Queue) Expire() int {
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()
	next := make([]Toast, 0, len(q.toasts))
	for _, t := range q.toasts {
		if !t.Expired(now) {
			next = append(next, t)
		}
	}
	removed := len(q.toasts) - len(next)
	if removed > 0 {
		q.toasts = next
	}
	return removed
}

// List returns the live toasts, oldest first.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast(nil), q.toasts...)
}

// Len returns the number of queued toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Now returns the queue's clock reading.
func (q *Queue) Now() time.Time {
	return q.now()
}
