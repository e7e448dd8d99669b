package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ManagerConfig holds configuration for the session Manager.
type ManagerConfig struct {
	// MaxTurns bounds each session's turn history. Default: DefaultMaxTurns.
	MaxTurns int

	// IdleTimeout is the duration of inactivity after which a session is
	// considered stale and will be dropped on the next SweepIdle call.
	// Default: 30 minutes.
	IdleTimeout time.Duration
}

// DefaultManagerConfig returns a ManagerConfig with the documented defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxTurns:    DefaultMaxTurns,
		IdleTimeout: 30 * time.Minute,
	}
}

// Manager partitions context stores by session key. Stores for independent
// sessions are fully isolated; the manager itself is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	config ManagerConfig
	stores map[string]*Store
}

// NewManager creates a Manager with the given configuration.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultManagerConfig().MaxTurns
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultManagerConfig().IdleTimeout
	}
	return &Manager{
		config: cfg,
		stores: make(map[string]*Store),
	}
}

// Get returns the context store for sessionID, creating it on first use.
// An empty sessionID gets a fresh anonymous session.
func (m *Manager) Get(sessionID string) *Store {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stores[sessionID]
	if s == nil {
		s = NewStore(sessionID, m.config.MaxTurns)
		m.stores[sessionID] = s
	}
	return s
}

// Sessions returns the number of live sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// SweepIdle drops sessions whose last activity is older than the idle
// timeout relative to now, and returns how many were removed. Callers run
// this periodically; dropped histories are gone unless an archive recorded
// them.
func (m *Manager) SweepIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.stores {
		if now.Sub(s.LastActive()) > m.config.IdleTimeout {
			delete(m.stores, id)
			removed++
		}
	}
	return removed
}
