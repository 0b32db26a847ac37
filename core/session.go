package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/toneshift/toneshift/engine"
	"github.com/toneshift/toneshift/logger"
)

// SessionManager owns the singleton engine session. A session is created once
// per Initialize call and reused by every rewrite; it is never re-created
// implicitly.
type SessionManager struct {
	mu           sync.Mutex
	eng          engine.Engine
	instructions string
	session      engine.Session
	logger       logger.Logger
}

func NewSessionManager(eng engine.Engine, l logger.Logger) *SessionManager {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &SessionManager{
		eng:          eng,
		instructions: Instructions,
		logger:       l,
	}
}

// Initialize probes availability and constructs the session. A fresh probe is
// taken on every attempt; capability can change between launches. Once a
// session exists, Initialize is a no-op until Close.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil
	}

	avail := m.eng.Probe(ctx)
	if avail.State != engine.StateAvailable {
		m.logger.WithField("availability", avail.String()).Warn("generation capability unavailable")
		return &UnavailableError{Availability: avail}
	}

	session, err := m.eng.NewSession(ctx, m.instructions)
	if err != nil {
		return fmt.Errorf("construct session: %w", err)
	}
	m.session = session
	m.logger.Info("engine session initialized")
	return nil
}

// Session returns the current session, or nil when initialization has not
// succeeded. Callers must fail fast on nil rather than initializing lazily.
func (m *SessionManager) Session() engine.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Close tears the session down. A later Initialize may create a new one.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	return err
}
