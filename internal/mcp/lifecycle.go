package mcp

import (
	"sync"
	"time"
)

// LifecycleState is one node of the MCP server connection state machine:
// Disconnected -mark_connecting-> Connecting -mark_connected-> Connected;
// any non-Disabled state -mark_failed-> Failed; Failed
// -mark_reconnecting-> Reconnecting; any state -mark_disabled-> Disabled
// (terminal until explicitly re-registered).
type LifecycleState string

const (
	LifecycleDisconnected LifecycleState = "disconnected"
	LifecycleConnecting   LifecycleState = "connecting"
	LifecycleConnected    LifecycleState = "connected"
	LifecycleFailed       LifecycleState = "failed"
	LifecycleReconnecting LifecycleState = "reconnecting"
	LifecycleDisabled     LifecycleState = "disabled"
)

// ServerLifecycle is a snapshot of one server's connection history.
type ServerLifecycle struct {
	Name               string
	State              LifecycleState
	LastConnectAttempt time.Time
	LastConnectedAt    time.Time
	FailureCount       int
	LastError          string
	ReconnectionCount  int
}

// LifecycleManager is a thread-safe registry of ServerLifecycle records,
// one per configured MCP server name. It is independent of Client's own
// per-connection Status field: Client tracks what a session object is
// doing right now, LifecycleManager tracks the history that governs
// whether a reconnection attempt is warranted.
type LifecycleManager struct {
	mu      sync.Mutex
	servers map[string]*ServerLifecycle
}

// NewLifecycleManager creates an empty manager.
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{servers: make(map[string]*ServerLifecycle)}
}

func (m *LifecycleManager) entry(name string) *ServerLifecycle {
	s, ok := m.servers[name]
	if !ok {
		s = &ServerLifecycle{Name: name, State: LifecycleDisconnected}
		m.servers[name] = s
	}
	return s
}

// Register ensures a lifecycle record exists for name. An existing record
// keeps its state and history, except that a Disabled one returns to
// Disconnected.
func (m *LifecycleManager) Register(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(name)
	if s.State == LifecycleDisabled {
		s.State = LifecycleDisconnected
	}
}

// MarkConnecting transitions to Connecting and stamps the attempt time.
func (m *LifecycleManager) MarkConnecting(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(name)
	if s.State == LifecycleDisabled {
		return
	}
	s.State = LifecycleConnecting
	s.LastConnectAttempt = time.Now()
}

// MarkConnected transitions to Connected and resets FailureCount to 0.
func (m *LifecycleManager) MarkConnected(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(name)
	if s.State == LifecycleDisabled {
		return
	}
	s.State = LifecycleConnected
	s.LastConnectedAt = time.Now()
	s.FailureCount = 0
	s.LastError = ""
}

// MarkFailed transitions to Failed, incrementing FailureCount and storing
// the error. Valid from any non-Disabled state.
func (m *LifecycleManager) MarkFailed(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(name)
	if s.State == LifecycleDisabled {
		return
	}
	s.State = LifecycleFailed
	s.FailureCount++
	if err != nil {
		s.LastError = err.Error()
	}
}

// MarkReconnecting transitions Failed -> Reconnecting, incrementing
// ReconnectionCount. No-op if the server is not currently Failed.
func (m *LifecycleManager) MarkReconnecting(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(name)
	if s.State != LifecycleFailed {
		return
	}
	s.State = LifecycleReconnecting
	s.ReconnectionCount++
}

// MarkDisabled transitions to the Disabled state from any state; only
// Register leaves it.
func (m *LifecycleManager) MarkDisabled(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(name).State = LifecycleDisabled
}

// ShouldReconnect reports whether a reconnection attempt is warranted: the
// server must be Failed or Disconnected and under the failure budget.
func (m *LifecycleManager) ShouldReconnect(name string, maxAttempts int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.servers[name]
	if !ok {
		return false
	}
	if s.State != LifecycleFailed && s.State != LifecycleDisconnected {
		return false
	}
	return s.FailureCount < maxAttempts
}

// Get returns a copy of the lifecycle record for name.
func (m *LifecycleManager) Get(name string) (ServerLifecycle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.servers[name]
	if !ok {
		return ServerLifecycle{}, false
	}
	return *s, true
}

// Connected returns the names of servers currently in the Connected state.
func (m *LifecycleManager) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name, s := range m.servers {
		if s.State == LifecycleConnected {
			names = append(names, name)
		}
	}
	return names
}

// FailedWithError returns server name -> last error for every server
// currently in the Failed state.
func (m *LifecycleManager) FailedWithError() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for name, s := range m.servers {
		if s.State == LifecycleFailed {
			out[name] = s.LastError
		}
	}
	return out
}

// Summary returns the count of servers in each state.
func (m *LifecycleManager) Summary() map[LifecycleState]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[LifecycleState]int)
	for _, s := range m.servers {
		out[s.State]++
	}
	return out
}
