// Package ingest implements the ingestion pipeline: the session registry,
// the per-session event bus, and the coordinator that walks a folder,
// converts each file, and persists the outcome.
package ingest

import (
	"context"
	"sync"
	"time"
)

// Stage identifies a point in the session state machine. Within one
// session, stages appear in order: scan_start, scan_complete, then the
// per-file stages, then an optional cancelled, then exactly one terminal
// stage.
type Stage string

const (
	StageScanStart      Stage = "scan_start"
	StageScanComplete   Stage = "scan_complete"
	StageFileProcessing Stage = "file_processing"
	StageFileSkip       Stage = "file_skip"
	StageFileSuccess    Stage = "file_success"
	StageFileError      Stage = "file_error"
	StageCancelled      Stage = "cancelled"
	StageDone           Stage = "done"
	StageCriticalError  Stage = "critical_error"
)

// Terminal reports whether the stage ends the event stream.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageCriticalError
}

// Level is the event severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Skip reasons for file_skip events.
const (
	SkipUnchanged = "unchanged"
	SkipMetadata  = "metadata"
)

// Summary is the final counter snapshot carried by the done event.
type Summary struct {
	TotalFiles     int `json:"total_files"`
	ProcessedFiles int `json:"processed_files"`
	SkippedFiles   int `json:"skipped_files"`
	ErrorFiles     int `json:"error_files"`
}

// Event is one line of the session stream, serialized as a single JSON
// object.
type Event struct {
	Level       Level    `json:"level"`
	Message     string   `json:"message"`
	Stage       Stage    `json:"stage"`
	SessionID   string   `json:"session_id"`
	TotalFiles  *int     `json:"total_files,omitempty"`
	Progress    *int     `json:"progress,omitempty"`
	CurrentFile string   `json:"current_file,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Summary     *Summary `json:"summary,omitempty"`
}

// droppable reports whether an event may be evicted under backpressure.
// Error, critical, and terminal events are never dropped.
func (e Event) droppable() bool {
	return e.Level != LevelError && e.Level != LevelCritical && !e.Stage.Terminal()
}

// Bus is the per-session event fan-out. The coordinator publishes; any
// number of subscribers consume. Every event is also kept in a bounded
// history ring so a subscriber attaching mid-run replays what it missed
// before receiving live events.
type Bus struct {
	mu       sync.Mutex
	capacity int
	history  []Event
	subs     map[int]*Subscription
	nextSub  int
	closed   bool
}

// NewBus creates a bus whose history and subscriber queues hold at most
// capacity events.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[int]*Subscription),
	}
}

// publishWait bounds how long Publish waits for a slow subscriber to
// drain a full queue before evicting from it.
const publishWait = 50 * time.Millisecond

// Publish appends the event to history and delivers it to every
// subscriber. A subscriber whose queue is full gets up to publishWait to
// drain before eviction kicks in. Publishing a terminal event closes the
// bus: subscribers receive the event and then see end-of-stream.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	b.history = appendBounded(b.history, ev, b.capacity)
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	terminal := ev.Stage.Terminal()
	if terminal {
		b.closed = true
		clear(b.subs)
	}
	b.mu.Unlock()

	// Delivery happens outside the bus lock so a full subscriber never
	// stalls Subscribe or History. There is a single publisher per
	// session, so per-subscriber ordering is preserved.
	for _, sub := range subs {
		sub.offer(ev, publishWait)
	}
	if terminal {
		for _, sub := range subs {
			sub.close()
		}
	}
}

// Subscribe attaches a consumer. The returned subscription starts with
// the history buffer already queued; if the bus is closed it delivers the
// history and then end-of-stream. Callers must Cancel the subscription
// when done.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		capacity: b.capacity,
		notify:   make(chan struct{}, 1),
	}
	sub.queue = append(sub.queue, b.history...)

	if b.closed {
		sub.closed = true
		return sub
	}

	id := b.nextSub
	b.nextSub++
	sub.cancel = func() { b.unsubscribe(id) }
	b.subs[id] = sub
	return sub
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		sub.close()
		delete(b.subs, id)
	}
}

// History returns a copy of the retained events.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// appendBounded appends ev, evicting the oldest droppable event when the
// buffer is full. When nothing droppable remains the oldest event goes
// anyway; the buffer never grows past capacity.
func appendBounded(buf []Event, ev Event, capacity int) []Event {
	if len(buf) >= capacity {
		idx := 0
		for i, old := range buf {
			if old.droppable() {
				idx = i
				break
			}
		}
		buf = append(buf[:idx], buf[idx+1:]...)
	}
	return append(buf, ev)
}

// Subscription is one consumer's view of a bus: a bounded FIFO queue fed
// by Publish and drained by Next.
type Subscription struct {
	mu       sync.Mutex
	capacity int
	queue    []Event
	notify   chan struct{}
	closed   bool
	cancel   func()
}

// offer queues the event. When the queue is full it polls until the
// consumer frees a slot or the wait budget runs out, then falls back to
// eviction.
func (s *Subscription) offer(ev Event, wait time.Duration) {
	deadline := time.Now().Add(wait)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.queue) < s.capacity {
			s.queue = append(s.queue, ev)
			s.mu.Unlock()
			s.signal()
			return
		}
		if time.Now().After(deadline) {
			s.queue = appendBounded(s.queue, ev, s.capacity)
			s.mu.Unlock()
			s.signal()
			return
		}
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the stream ends, or the
// context is done. ok is false at end-of-stream.
func (s *Subscription) Next(ctx context.Context) (ev Event, ok bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev = s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, true
		}
		if s.closed {
			s.mu.Unlock()
			return Event{}, false
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-s.notify:
		}
	}
}

// Cancel detaches the subscription from its bus.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
	s.close()
}
