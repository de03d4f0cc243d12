package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/eibrahimli/anvil/internal/provider"
	"github.com/eibrahimli/anvil/pkg/types"
)

// CompactionConfig controls when and how aggressively old messages get
// summarized to free up context budget.
type CompactionConfig struct {
	MinMessagesToKeep int
	SummaryMaxTokens  int
	ContextThreshold  float64
}

// DefaultCompactionConfig is what runLoop and the /compact command both use;
// nothing currently overrides it per-session.
var DefaultCompactionConfig = CompactionConfig{
	MinMessagesToKeep: 4,
	SummaryMaxTokens:  2000,
	ContextThreshold:  0.75,
}

// compactMessages asks the default model to summarize every message except
// the most recent MinMessagesToKeep, and records that summary on the
// session so future prompts can reference it instead of the raw history.
// The compacted messages themselves are left in storage untouched — only
// what gets fed back into future completion requests shrinks.
func (p *Processor) compactMessages(ctx context.Context, sessionID string, messages []*types.Message) error {
	if len(messages) <= DefaultCompactionConfig.MinMessagesToKeep {
		return nil
	}

	session, err := p.findSession(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	session.Time.Compacting = &now
	p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)
	defer func() {
		session.Time.Compacting = nil
		p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)
	}()

	compactEnd := len(messages) - DefaultCompactionConfig.MinMessagesToKeep
	toCompact := messages[:compactEnd]

	model, err := p.providerRegistry.DefaultModel()
	if err != nil {
		return err
	}
	prov, err := p.providerRegistry.Get(model.ProviderID)
	if err != nil {
		return err
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: "You are a conversation summarizer. Create a concise summary of the conversation that preserves key context for continuing the discussion."},
			{Role: schema.User, Content: p.buildSummaryPrompt(ctx, toCompact)},
		},
		MaxTokens: DefaultCompactionConfig.SummaryMaxTokens,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	var summary strings.Builder
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		summary.WriteString(msg.Content)
	}

	session.Summary.Diffs = append(session.Summary.Diffs, types.FileDiff{
		Path:   "__compaction__",
		Before: "",
		After:  summary.String(),
	})
	return p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)
}

// buildSummaryPrompt renders a slice of messages back into plain text for
// the summarizer model, truncating long tool output so one noisy command
// doesn't crowd the rest of the conversation out of the prompt.
func (p *Processor) buildSummaryPrompt(ctx context.Context, messages []*types.Message) string {
	var prompt strings.Builder

	prompt.WriteString("Please summarize the following conversation, focusing on:\n")
	prompt.WriteString("1. Key decisions and outcomes\n")
	prompt.WriteString("2. Files that were modified\n")
	prompt.WriteString("3. Important context for continuing the work\n\n")
	prompt.WriteString("---\n\n")

	for _, msg := range messages {
		if msg.Role == types.RoleUser {
			prompt.WriteString("USER:\n")
		} else {
			prompt.WriteString("ASSISTANT:\n")
		}

		parts, err := p.loadParts(ctx, msg.ID)
		if err != nil {
			continue
		}

		for _, part := range parts {
			switch pt := part.(type) {
			case *types.TextPart:
				prompt.WriteString(pt.Text)
				prompt.WriteString("\n")
			case *types.ToolPart:
				prompt.WriteString(fmt.Sprintf("[Tool: %s]\n", pt.Tool))
				if pt.State.Output != "" {
					output := pt.State.Output
					if len(output) > 500 {
						output = output[:500] + "..."
					}
					prompt.WriteString(output)
					prompt.WriteString("\n")
				}
			}
		}

		prompt.WriteString("\n")
	}

	return prompt.String()
}

// estimateTokens is the same ~4-characters-per-token heuristic used
// elsewhere in this package when a provider doesn't report real usage.
func estimateTokens(text string) int {
	return len(text) / 4
}
