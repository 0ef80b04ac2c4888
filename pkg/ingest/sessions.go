package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/models"
)

// Params echoes the scan inputs of a session for the debug surface.
type Params struct {
	Recursive bool       `json:"recursive"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	FileTypes []string   `json:"file_types,omitempty"`
}

// Session is one live (or recently ended) ingestion run. The stop flag is
// the cooperative cancellation channel between the control surface and
// the coordinator's file loop.
type Session struct {
	ID         string
	FolderPath string
	Params     Params
	StartedAt  time.Time

	stop atomic.Bool
	done atomic.Bool
	bus  *Bus
}

// Stop requests cooperative cancellation. The file loop polls this at the
// top of each iteration.
func (s *Session) Stop() { s.stop.Store(true) }

// Stopped reports whether cancellation has been requested.
func (s *Session) Stopped() bool { return s.stop.Load() }

// Done reports whether the session has emitted its terminal event.
func (s *Session) Done() bool { return s.done.Load() }

// Bus returns the session's event bus.
func (s *Session) Bus() *Bus { return s.bus }

// Snapshot is the debug view of a session: its parameters, flags, and
// retained event history.
type Snapshot struct {
	SessionID  string    `json:"session_id"`
	FolderPath string    `json:"folder_path"`
	Params     Params    `json:"params"`
	StartedAt  time.Time `json:"started_at"`
	Done       bool      `json:"done"`
	Stop       bool      `json:"stop"`
	History    []Event   `json:"history"`
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		SessionID:  s.ID,
		FolderPath: s.FolderPath,
		Params:     s.Params,
		StartedAt:  s.StartedAt,
		Done:       s.done.Load(),
		Stop:       s.stop.Load(),
		History:    s.bus.History(),
	}
}

// Registry tracks live sessions and keeps ended ones around for a grace
// window so late subscribers can still replay their history.
type Registry struct {
	mu         sync.Mutex
	active     map[string]*Session
	ended      map[string]*Session
	historyCap int
	grace      time.Duration
}

// NewRegistry creates a registry. historyCap bounds each session's event
// ring; grace is how long ended sessions remain queryable.
func NewRegistry(historyCap int, grace time.Duration) *Registry {
	if historyCap <= 0 {
		historyCap = 1000
	}
	if grace <= 0 {
		grace = 60 * time.Second
	}
	return &Registry{
		active:     make(map[string]*Session),
		ended:      make(map[string]*Session),
		historyCap: historyCap,
		grace:      grace,
	}
}

// Start allocates a session with a fresh id and an empty event bus.
func (r *Registry) Start(folder string, params Params) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		FolderPath: folder,
		Params:     params,
		StartedAt:  time.Now().UTC(),
		bus:        NewBus(r.historyCap),
	}
	r.mu.Lock()
	r.active[s.ID] = s
	r.mu.Unlock()

	logger.Info("ingestion session started",
		logger.KeySessionID, s.ID,
		logger.KeyPath, folder)
	return s
}

// Cancel sets the stop flag on a session. Unknown ids return false;
// cancelling an already-ended session is a no-op that still returns true.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	s, ok := r.active[id]
	if !ok {
		s, ok = r.ended[id]
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	if !s.Done() {
		s.Stop()
		logger.Info("cancellation requested", logger.KeySessionID, id)
	}
	return true
}

// CancelAll cancels every active session and returns their ids.
func (r *Registry) CancelAll() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.active))
	for id, s := range r.active {
		s.Stop()
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if len(ids) > 0 {
		logger.Info("cancellation requested for all sessions", "count", len(ids))
	}
	return ids
}

// Active returns the ids of sessions that have not yet ended.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}

// Get returns a session by id, live or within its grace window.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.active[id]; ok {
		return s, nil
	}
	if s, ok := r.ended[id]; ok {
		return s, nil
	}
	return nil, models.ErrSessionNotFound
}

// GetSnapshot returns the debug view of a session.
func (r *Registry) GetSnapshot(id string) (Snapshot, error) {
	s, err := r.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), nil
}

// End marks a session finished and schedules its removal after the grace
// window. Called by the coordinator's finalize block after the terminal
// event has been published.
func (r *Registry) End(s *Session) {
	s.done.Store(true)

	r.mu.Lock()
	delete(r.active, s.ID)
	r.ended[s.ID] = s
	r.mu.Unlock()

	time.AfterFunc(r.grace, func() {
		r.mu.Lock()
		delete(r.ended, s.ID)
		r.mu.Unlock()
	})
}
