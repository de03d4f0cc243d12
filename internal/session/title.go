package session

import (
	"context"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/eibrahimli/anvil/internal/event"
	"github.com/eibrahimli/anvil/internal/provider"
	"github.com/eibrahimli/anvil/pkg/types"
)

const titleSystemPrompt = `You are a title generator. You output ONLY a thread title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, ≤50 characters
- No explanations
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful

Examples:
"debug 500 errors in production" → Debugging production 500 errors
"refactor user service" → Refactoring user service
"implement rate limiting" → Implementing rate limiting`

const defaultTitlePrefix = "New Session"

func isDefaultTitle(title string) bool {
	return title == defaultTitlePrefix || strings.HasPrefix(title, defaultTitlePrefix)
}

// ensureTitle asks the default model for a short title once a session's
// first user message lands, and no-ops on every message after: child
// sessions keep whatever title their fork carried, and a session whose
// title already moved past "New Session" is left alone.
func (p *Processor) ensureTitle(ctx context.Context, session *types.Session, userContent string) {
	if session.ParentID != nil && *session.ParentID != "" {
		return
	}
	if !isDefaultTitle(session.Title) {
		return
	}

	model, err := p.providerRegistry.DefaultModel()
	if err != nil {
		return
	}

	prov, err := p.providerRegistry.Get(model.ProviderID)
	if err != nil {
		return
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: titleSystemPrompt},
			{Role: schema.User, Content: "Generate a title for this conversation:\n\n" + userContent},
		},
		MaxTokens: 50,
	})
	if err != nil {
		return
	}
	defer stream.Close()

	var raw strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return
		}
		raw.WriteString(msg.Content)
	}

	titleText := cleanTitle(raw.String())
	if titleText == "" {
		return
	}

	session.Title = titleText
	p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)

	event.PublishSync(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: session},
	})
}

// cleanTitle takes a raw model completion and reduces it to a single,
// length-bounded title line: first non-blank line, trimmed, capped at 100
// characters with an ellipsis.
func cleanTitle(raw string) string {
	titleText := strings.TrimSpace(raw)
	for _, line := range strings.Split(titleText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			titleText = line
			break
		}
	}

	if len(titleText) > 100 {
		titleText = titleText[:97] + "..."
	}

	return titleText
}
