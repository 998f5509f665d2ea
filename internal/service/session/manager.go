package session

import (
	"context"
	"fmt"
	"sync"

	"zkpoker-client/internal/service/ledger"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Manager keeps one running session per game contract.
type Manager struct {
	dialer ledger.Dialer
	deps   Deps

	mu       sync.Mutex
	ctx      context.Context
	sessions map[common.Address]*Session
}

func NewManager(dialer ledger.Dialer, deps Deps) *Manager {
	return &Manager{
		dialer:   dialer,
		deps:     deps,
		ctx:      context.Background(),
		sessions: make(map[common.Address]*Session),
	}
}

// Start binds future sessions to ctx.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.StopAll()
	}()
}

// Get returns the running session for addr, starting one on first use.
func (m *Manager) Get(addr common.Address) (*Session, error) {
	if addr == (common.Address{}) {
		return nil, appErr.ErrGameNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[addr]; ok {
		return s, nil
	}
	game, err := m.dialer.Game(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrGameNotFound, err)
	}
	s := New(game, m.deps)
	s.Start(m.ctx)
	m.sessions[addr] = s
	logger.Log.Info("session opened", zap.String("contract", addr.Hex()), zap.Int("sessions", len(m.sessions)))
	return s, nil
}

func (m *Manager) Lookup(addr common.Address) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[addr]
	return s, ok
}

func (m *Manager) Close(addr common.Address) {
	m.mu.Lock()
	s, ok := m.sessions[addr]
	delete(m.sessions, addr)
	m.mu.Unlock()
	if ok {
		s.Stop()
	}
}

func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[common.Address]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Stop()
	}
}
