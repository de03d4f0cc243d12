// Package confirmation implements the confirmation bus: a process-wide
// map of request-id to one-shot reply channel, paired with
// UI event emission. It is deliberately separate from internal/permission
// (the policy engine) so that other callers — e.g. the question tool's
// multi-choice prompts — can share the same request/response plumbing
// without depending on permission-rule evaluation.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eibrahimli/anvil/internal/event"
	"github.com/oklog/ulid/v2"
)

// ErrChannelClosed is returned when a pending request's channel is closed
// without ever receiving a response.
var ErrChannelClosed = errors.New("confirmation channel closed")

// Kind is the UI affordance a request asks for.
type Kind = event.ConfirmationKind

const (
	KindShell      = event.ConfirmationShell
	KindDiff       = event.ConfirmationDiff
	KindPermission = event.ConfirmationPermission
)

// Request describes one pending confirmation.
type Request struct {
	SessionID        string
	Kind             Kind
	Command          string
	FilePath         string
	OldContent       *string
	NewContent       *string
	Title            string
	SuggestedPattern string
}

// Response is what the UI sends back via Resolve.
type Response struct {
	Allowed bool
	Always  bool
	Pattern string
}

// Bus correlates confirmation requests with their eventual UI responses.
type Bus struct {
	mu      sync.Mutex
	pending map[string]chan Response
	emit    *event.Bus
}

// New creates a Bus that publishes requests on the given event bus. A nil
// bus falls back to event.Default().
func New(bus *event.Bus) *Bus {
	if bus == nil {
		bus = event.Default()
	}
	return &Bus{pending: make(map[string]chan Response), emit: bus}
}

// Ask allocates a request id, registers its one-shot channel, emits the
// event, and blocks until a response arrives, ctx is cancelled, or the
// channel is closed without a response.
func (b *Bus) Ask(ctx context.Context, req Request) (Response, error) {
	id := ulid.Make().String()
	ch := make(chan Response, 1)

	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()

	b.emit.Publish(event.Event{
		Type: event.RequestConfirmation,
		Data: event.RequestConfirmationData{
			ID:               id,
			SessionID:        req.SessionID,
			Kind:             req.Kind,
			Command:          req.Command,
			FilePath:         req.FilePath,
			OldContent:       req.OldContent,
			NewContent:       req.NewContent,
			Title:            req.Title,
			SuggestedPattern: req.SuggestedPattern,
		},
	})

	select {
	case <-ctx.Done():
		b.remove(id)
		return Response{}, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrChannelClosed
		}
		b.emit.Publish(event.Event{
			Type: event.ConfirmationResolved,
			Data: event.ConfirmationResolvedData{ID: id, Allowed: resp.Allowed},
		})
		return resp, nil
	}
}

// Resolve fulfils a pending request. A resolve for an id nobody is waiting
// on (unknown, already resolved, or whose asker has timed out or cancelled)
// changes nothing and returns an error.
func (b *Bus) Resolve(id string, resp Response) error {
	b.mu.Lock()
	ch, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("confirmation %s: no pending request", id)
	}
	ch <- resp
	close(ch)
	return nil
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.pending[id]; ok {
		close(ch)
		delete(b.pending, id)
	}
}

// Pending reports how many requests are currently awaiting a response.
// Used by tests and diagnostics.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
