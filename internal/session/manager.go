package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is the registry view of one websocket connection. The listening
// flag and audio accumulator live in the relay loop that owns the
// connection, not here.
type Session struct {
	ID             string    `json:"session_id"`
	RemoteAddr     string    `json:"remote_addr"`
	Status         Status    `json:"status"`
	TurnCount      int       `json:"turn_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Manager tracks live sessions so health endpoints and the janitor can see
// them. One session per connection; sessions are never shared.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	cancels           map[string]func()
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 2 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		cancels:           make(map[string]func()),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create registers a session for a new connection.
func (m *Manager) Create(remoteAddr string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		RemoteAddr:     remoteAddr,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// BindCancel ties a teardown function to the session. The janitor calls it
// when the session expires, so the owning connection closes instead of
// lingering without a registry entry.
func (m *Manager) BindCancel(sessionID string, cancel func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	m.cancels[sessionID] = cancel
	return nil
}

// Touch refreshes the activity timestamp; called on every inbound event.
func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// CompleteTurn increments the completed pipeline-run counter.
func (m *Manager) CompleteTurn(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.TurnCount++
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End marks the session ended and removes it from the registry.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	delete(m.sessions, sessionID)
	delete(m.cancels, sessionID)
	return clone(s), nil
}

// StartJanitor expires sessions whose connections stopped producing events
// without a clean disconnect.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session
	var cancels []func()

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if cancel, ok := m.cancels[id]; ok {
			cancels = append(cancels, cancel)
		}
		delete(m.sessions, id)
		delete(m.cancels, id)
	}
	hook := m.onExpire
	m.mu.Unlock()

	// Tear down the owning connections outside the lock so an expired
	// session cannot keep a live websocket without a registry entry.
	for _, cancel := range cancels {
		cancel()
	}
	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
