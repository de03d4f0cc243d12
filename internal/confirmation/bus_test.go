package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/eibrahimli/anvil/internal/event"
	"github.com/stretchr/testify/require"
)

func TestBus_AskResolve(t *testing.T) {
	bus := event.New()
	var gotID string
	bus.Subscribe(event.RequestConfirmation, func(e event.Event) {
		data := e.Data.(event.RequestConfirmationData)
		gotID = data.ID
		go func() {
			time.Sleep(5 * time.Millisecond)
			c := New(bus)
			_ = c
		}()
	})

	c := New(bus)
	var resolved bool
	bus.Subscribe(event.RequestConfirmation, func(e event.Event) {
		data := e.Data.(event.RequestConfirmationData)
		go func() {
			_ = c.Resolve(data.ID, Response{Allowed: true})
		}()
	})

	resp, err := c.Ask(context.Background(), Request{Kind: KindShell, Command: "ls"})
	require.NoError(t, err)
	require.True(t, resp.Allowed)
	require.NotEmpty(t, gotID)
	resolved = true
	require.True(t, resolved)
}

func TestBus_AskContextCancelled(t *testing.T) {
	c := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Ask(ctx, Request{Kind: KindPermission})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, c.Pending())
}

func TestBus_ResolveUnknownID(t *testing.T) {
	c := New(nil)
	err := c.Resolve("nonexistent", Response{Allowed: true})
	require.Error(t, err)
}
