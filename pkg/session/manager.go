package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/pkg/domain"
)

// Factory builds the harness for a new session.
type Factory func() (*harness.Harness, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live sessions.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*harness.Harness

	lockMu sync.Mutex
	locks  map[string]*lockEntry

	newID  func() string
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a Manager that builds sessions with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		sessions: make(map[string]*harness.Harness),
		locks:    make(map[string]*lockEntry),
		newID:    uuid.NewString,
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with empty input and output.
func (m *Manager) Create(ctx context.Context) (string, *harness.Harness, error) {
	h, err := m.factory()
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	if _, exists := m.sessions[id]; exists {
		return "", nil, fmt.Errorf("session id collision: %s", id)
	}
	m.sessions[id] = h
	m.logger.Debug("session created", "session_id", id)
	return id, h, nil
}

// New builds a harness with the session factory without tracking it.
// Stateless surfaces use it for one-off evaluations.
func (m *Manager) New() (*harness.Harness, error) {
	return m.factory()
}

// Get returns the harness of a session.
func (m *Manager) Get(id string) (*harness.Harness, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return h, nil
}

// Delete ends a session. Evaluations already running finish on their own.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.sessions[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		delete(m.sessions, id)
		m.logger.Debug("session deleted", "session_id", id)
		return nil
	})
}

// List returns the live session ids in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetInput replaces a session's input.
func (m *Manager) SetInput(ctx context.Context, id, text string) error {
	return m.Do(ctx, id, func(ctx context.Context, h *harness.Harness) error {
		h.SetInput(text)
		return nil
	})
}

// Run triggers an evaluation of a session and waits for it.
// Only the snapshot is taken under the session lock, so the session stays
// editable while the engine runs. The evaluation runs to completion even if
// ctx is cancelled.
func (m *Manager) Run(ctx context.Context, id string) (domain.Outcome, error) {
	var done <-chan domain.Outcome
	err := m.Do(ctx, id, func(ctx context.Context, h *harness.Harness) error {
		done = h.RunAsync(context.WithoutCancel(ctx))
		return nil
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	outcome := <-done
	return outcome, outcome.Err
}

// Do runs fn against a session while holding its lock.
func (m *Manager) Do(ctx context.Context, id string, fn func(context.Context, *harness.Harness) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		h, err := m.Get(id)
		if err != nil {
			return err
		}
		return fn(ctx, h)
	})
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()
	return fn(ctx)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// activeLocks reports the number of lock entries, for tests.
func (m *Manager) activeLocks() int {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	return len(m.locks)
}
