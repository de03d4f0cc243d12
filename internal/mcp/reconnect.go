package mcp

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eibrahimli/anvil/internal/logging"
)

var reconnectLog = logging.For("mcp.reconnect")

const (
	// reconnectPollInterval is how often the background loop scans the
	// lifecycle manager for servers eligible for another attempt.
	reconnectPollInterval = 5 * time.Second
	// defaultMaxReconnectionAttempts is the failure count at which the loop
	// stops retrying a server; it applies to every server.
	defaultMaxReconnectionAttempts = 5
)

// reconnectState tracks per-server backoff progress between poll ticks.
type reconnectState struct {
	backoff     backoff.BackOff
	nextAttempt time.Time
}

// StartReconnectLoop launches a background goroutine that polls the
// lifecycle manager for servers due for a reconnection attempt and calls
// Reconnect on each, backing off between attempts on a given server with
// jitter so a flapping server doesn't busy-loop reconnect attempts. It
// returns a cancel function that stops the loop.
func (c *Client) StartReconnectLoop(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	states := make(map[string]*reconnectState)

	go func() {
		ticker := time.NewTicker(reconnectPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.pollReconnect(ctx, states)
			}
		}
	}()

	return cancel
}

func (c *Client) pollReconnect(ctx context.Context, states map[string]*reconnectState) {
	c.mu.RLock()
	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	c.mu.RUnlock()

	now := time.Now()
	for _, name := range names {
		if !c.lifecycle.ShouldReconnect(name, defaultMaxReconnectionAttempts) {
			delete(states, name)
			continue
		}

		st, ok := states[name]
		if !ok {
			st = &reconnectState{backoff: newReconnectBackoff()}
			states[name] = st
		}
		if now.Before(st.nextAttempt) {
			continue
		}

		reconnectLog.Debug().Str("server", name).Msg("attempting scheduled reconnect")
		if err := c.Reconnect(ctx, name, defaultMaxReconnectionAttempts); err != nil {
			wait := st.backoff.NextBackOff()
			if wait == backoff.Stop {
				delete(states, name)
				continue
			}
			st.nextAttempt = now.Add(wait)
			reconnectLog.Warn().Str("server", name).Err(err).Dur("retryIn", wait).Msg("scheduled reconnect failed")
			continue
		}

		reconnectLog.Info().Str("server", name).Msg("reconnected")
		delete(states, name)
	}
}

func newReconnectBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = reconnectPollInterval
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 0 // bounded instead by ShouldReconnect's attempt ceiling
	b.RandomizationFactor = 0.3
	b.Multiplier = 2.0
	b.Reset()
	return b
}
