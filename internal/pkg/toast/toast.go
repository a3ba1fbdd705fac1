package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// DefaultDuration is how long a toast stays visible unless told otherwise.
const DefaultDuration = 4 * time.Second

type Toast struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"type"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Queue holds the visible toasts of one browser session. Every toast is
// removed automatically after its duration.
type Queue struct {
	mu          sync.Mutex
	toasts      []Toast
	timers      map[string]*time.Timer
	nextSubID   int
	subscribers map[int]func([]Toast)
	closed      bool
}

func NewQueue() *Queue {
	return &Queue{
		timers:      make(map[string]*time.Timer),
		subscribers: make(map[int]func([]Toast)),
	}
}

// Add shows message for duration (DefaultDuration when <= 0) and returns its id.
func (q *Queue) Add(message string, severity Severity, duration time.Duration) string {
	if duration <= 0 {
		duration = DefaultDuration
	}
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		Duration:  duration,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return t.ID
	}
	q.toasts = append(q.toasts, t)
	q.timers[t.ID] = time.AfterFunc(duration, func() { q.Remove(t.ID) })
	q.mu.Unlock()

	q.notify()
	return t.ID
}

func (q *Queue) Success(message string) string { return q.Add(message, Success, DefaultDuration) }
func (q *Queue) Error(message string) string   { return q.Add(message, Error, DefaultDuration) }
func (q *Queue) Warning(message string) string { return q.Add(message, Warning, DefaultDuration) }
func (q *Queue) Info(message string) string    { return q.Add(message, Info, DefaultDuration) }

// Remove drops the toast with id. Unknown ids are ignored.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	idx := -1
	for i, t := range q.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.toasts = append(q.toasts[:idx:idx], q.toasts[idx+1:]...)
	q.mu.Unlock()

	q.notify()
}

// List returns the visible toasts in insertion order.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast(nil), q.toasts...)
}

func (q *Queue) Subscribe(fn func([]Toast)) func() {
	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subscribers, id)
		q.mu.Unlock()
	}
}

// Close stops every pending timer and drops the visible toasts.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.toasts = nil
	q.closed = true
}

func (q *Queue) notify() {
	q.mu.Lock()
	list := append([]Toast(nil), q.toasts...)
	subs := make([]func([]Toast), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(list)
	}
}
