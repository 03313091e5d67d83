// Package session keeps one liveness evaluator per playground caller.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/platform/logging"
)

const (
	DefaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Factory builds the evaluator of a new session.
type Factory func(id string) *liveness.Evaluator

type entry struct {
	evaluator *liveness.Evaluator
	lastSeen  time.Time
}

// Manager hands out evaluators keyed by session id and evicts idle ones.
type Manager struct {
	factory Factory
	ttl     time.Duration
	logger  *logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(factory Factory, ttl time.Duration, logger *logging.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Acquire returns the evaluator for id. Unknown or malformed ids get a new
// session; the returned id is the one to use from then on.
func (m *Manager) Acquire(id string) (string, *liveness.Evaluator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.lastSeen = m.now()
		return id, e.evaluator
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	e := &entry{evaluator: m.factory(id), lastSeen: m.now()}
	m.sessions[id] = e
	m.logger.InfoTag("SESSION", "created session %s", id)
	return id, e.evaluator
}

// Lookup returns the evaluator of an existing session.
func (m *Manager) Lookup(id string) (*liveness.Evaluator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.evaluator, true
}

// Each calls fn for every live session.
func (m *Manager) Each(fn func(id string, evaluator *liveness.Evaluator)) {
	m.mu.Lock()
	snapshot := make(map[string]*liveness.Evaluator, len(m.sessions))
	for id, e := range m.sessions {
		snapshot[id] = e.evaluator
	}
	m.mu.Unlock()

	for id, evaluator := range snapshot {
		fn(id, evaluator)
	}
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and releases their
// results. Sessions with a running batch are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*liveness.Evaluator
	for id, e := range m.sessions {
		if e.lastSeen.After(cutoff) || e.evaluator.Snapshot().Loading {
			continue
		}
		expired = append(expired, e.evaluator)
		delete(m.sessions, id)
		m.logger.InfoTag("SESSION", "evicted idle session %s", id)
	}
	m.mu.Unlock()

	for _, evaluator := range expired {
		evaluator.ClearResults()
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then releases every session.
func (m *Manager) Run(ctx context.Context) error {
	interval := defaultSweepInterval
	if m.ttl < interval {
		interval = m.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close releases the results of every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.evaluator.ClearResults()
	}
}
