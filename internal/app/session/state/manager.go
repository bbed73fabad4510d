package state

import (
	"sync"
	"time"
)

// Manager tracks the lifecycle phase with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	phase     Phase
	accepting AcceptingState
	startedAt time.Time
	stoppedAt time.Time
}

// New creates a new state manager in PhaseStarting.
func New() *Manager {
	return &Manager{
		phase:     PhaseStarting,
		accepting: NotAccepting,
	}
}

// GetPhase returns the current phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Activate moves a starting manager to PhaseActive and starts accepting.
// It returns false if the manager was not starting.
func (m *Manager) Activate(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseStarting {
		return false
	}
	m.phase = PhaseActive
	m.accepting = Accepting
	m.startedAt = now
	return true
}

// Terminate moves the manager to PhaseTerminated and stops accepting.
// It returns false if the manager was already terminated.
func (m *Manager) Terminate(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseTerminated {
		return false
	}
	m.phase = PhaseTerminated
	m.accepting = NotAccepting
	m.stoppedAt = now
	return true
}

// GetAcceptingState returns the accepting state.
func (m *Manager) GetAcceptingState() AcceptingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accepting
}

// StartAccepting sets the accepting state to Accepting.
func (m *Manager) StartAccepting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepting = Accepting
}

// StopAccepting sets the accepting state to NotAccepting.
func (m *Manager) StopAccepting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepting = NotAccepting
}

// CanAcceptRequests returns true if the server is active and accepting.
func (m *Manager) CanAcceptRequests() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase == PhaseActive && m.accepting == Accepting
}

// GetTimes returns when the server became active and when it terminated.
// Zero values mean the transition has not happened.
func (m *Manager) GetTimes() (time.Time, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startedAt, m.stoppedAt
}
