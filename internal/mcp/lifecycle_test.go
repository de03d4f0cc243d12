package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleManager_HappyPath(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("srv")

	s, ok := m.Get("srv")
	assert.True(t, ok)
	assert.Equal(t, LifecycleDisconnected, s.State)

	m.MarkConnecting("srv")
	s, _ = m.Get("srv")
	assert.Equal(t, LifecycleConnecting, s.State)

	m.MarkConnected("srv")
	s, _ = m.Get("srv")
	assert.Equal(t, LifecycleConnected, s.State)
	assert.Equal(t, 0, s.FailureCount)
	assert.Contains(t, m.Connected(), "srv")
}

func TestLifecycleManager_FailureCountAccumulates(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("srv")

	for i := 1; i <= 3; i++ {
		m.MarkFailed("srv", errors.New("boom"))
		s, _ := m.Get("srv")
		assert.Equal(t, i, s.FailureCount)
		assert.Equal(t, LifecycleFailed, s.State)
	}

	failed := m.FailedWithError()
	assert.Equal(t, "boom", failed["srv"])
}

func TestLifecycleManager_ConnectResetsFailureCount(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("srv")
	m.MarkFailed("srv", errors.New("x"))
	m.MarkFailed("srv", errors.New("x"))
	m.MarkConnected("srv")

	s, _ := m.Get("srv")
	assert.Equal(t, 0, s.FailureCount)
	assert.Equal(t, LifecycleConnected, s.State)
}

func TestLifecycleManager_ShouldReconnect(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("srv")

	assert.True(t, m.ShouldReconnect("srv", 3), "a Disconnected server under the failure budget is eligible")

	m.MarkFailed("srv", errors.New("e"))
	assert.True(t, m.ShouldReconnect("srv", 3))

	m.MarkFailed("srv", errors.New("e"))
	m.MarkFailed("srv", errors.New("e"))
	assert.False(t, m.ShouldReconnect("srv", 3), "failure_count has reached max_reconnection_attempts")
}

func TestLifecycleManager_ReconnectingRequiresFailed(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("srv")

	// No-op: never failed.
	m.MarkReconnecting("srv")
	s, _ := m.Get("srv")
	assert.Equal(t, LifecycleDisconnected, s.State)
	assert.Equal(t, 0, s.ReconnectionCount)

	m.MarkFailed("srv", errors.New("e"))
	m.MarkReconnecting("srv")
	s, _ = m.Get("srv")
	assert.Equal(t, LifecycleReconnecting, s.State)
	assert.Equal(t, 1, s.ReconnectionCount)
}

func TestLifecycleManager_DisabledIsTerminal(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("srv")
	m.MarkDisabled("srv")

	m.MarkConnecting("srv")
	m.MarkConnected("srv")
	m.MarkFailed("srv", errors.New("e"))

	s, _ := m.Get("srv")
	assert.Equal(t, LifecycleDisabled, s.State)
}

func TestLifecycleManager_Summary(t *testing.T) {
	m := NewLifecycleManager()
	m.Register("a")
	m.Register("b")
	m.MarkConnecting("a")
	m.MarkConnected("a")
	m.MarkConnecting("b")
	m.MarkFailed("b", errors.New("e"))

	summary := m.Summary()
	assert.Equal(t, 1, summary[LifecycleConnected])
	assert.Equal(t, 1, summary[LifecycleFailed])
}
