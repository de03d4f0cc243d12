package types

import "encoding/json"

// Part is one incremental piece of an assistant turn as it streams in —
// text, reasoning, a tool call/result, or a file attachment. Parts are
// persisted independently of their owning Message (storage path
// []string{"part", messageID, partID}) so a UI can replay a turn's timeline
// part-by-part instead of waiting for the full Message to settle.
type Part interface {
	PartType() string
	PartID() string
	PartSessionID() string
	PartMessageID() string
}

// PartTime brackets when a part started and (once known) finished.
type PartTime struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// TextPart is a contiguous run of assistant or user text.
type TextPart struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionID"`
	MessageID string         `json:"messageID"`
	Type      string         `json:"type"` // always "text"
	Text      string         `json:"text"`
	Time      PartTime       `json:"time,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (p *TextPart) PartType() string      { return "text" }
func (p *TextPart) PartID() string        { return p.ID }
func (p *TextPart) PartSessionID() string { return p.SessionID }
func (p *TextPart) PartMessageID() string { return p.MessageID }

// ReasoningPart carries extended-thinking content a model streams ahead of
// its answer. Not every provider emits these; Gemini and Anthropic extended
// thinking are the current sources.
type ReasoningPart struct {
	ID        string   `json:"id"`
	SessionID string   `json:"sessionID"`
	MessageID string   `json:"messageID"`
	Type      string   `json:"type"` // always "reasoning"
	Text      string   `json:"text"`
	Time      PartTime `json:"time,omitempty"`
}

func (p *ReasoningPart) PartType() string      { return "reasoning" }
func (p *ReasoningPart) PartID() string        { return p.ID }
func (p *ReasoningPart) PartSessionID() string { return p.SessionID }
func (p *ReasoningPart) PartMessageID() string { return p.MessageID }

// ToolTime brackets a tool call's execution, independent of the part's own
// PartTime (which tracks the part's lifetime in the stream).
type ToolTime struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end,omitempty"`
}

// ToolState is the mutable body of a ToolPart: everything that changes as a
// call moves from "pending" to "running" to "completed"|"error". Raw
// accumulates the provider's streamed argument JSON before it parses cleanly
// into Input. Output/Error are plain strings rather than pointers since a
// tool result is always one or the other once the call settles.
type ToolState struct {
	Status      string         `json:"status"` // "pending" | "running" | "completed" | "error"
	Input       map[string]any `json:"input"`
	Raw         string         `json:"raw,omitempty"`
	Output      string         `json:"output,omitempty"`
	Title       string         `json:"title,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Attachments []FilePart     `json:"attachments,omitempty"`
	Time        *ToolTime      `json:"time,omitempty"`
}

// ToolPart tracks one tool call from request through result, moving through
// State.Status "pending" -> "running" -> "completed"|"error" as the step
// loop drives it. Metadata here is part-level bookkeeping (e.g. a computed
// diff for display) distinct from State.Metadata, which a tool's own
// execution populates.
type ToolPart struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionID"`
	MessageID string         `json:"messageID"`
	Type      string         `json:"type"` // always "tool"
	CallID    string         `json:"callID"`
	Tool      string         `json:"tool"`
	State     ToolState      `json:"state"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Time      PartTime       `json:"time,omitempty"`
}

func (p *ToolPart) PartType() string      { return "tool" }
func (p *ToolPart) PartID() string        { return p.ID }
func (p *ToolPart) PartSessionID() string { return p.SessionID }
func (p *ToolPart) PartMessageID() string { return p.MessageID }

// ToToolCall renders the part's request side back into the wire ToolCall
// shape providers expect on the next turn's message history.
func (p *ToolPart) ToToolCall() ToolCall {
	args, _ := json.Marshal(p.State.Input)
	return ToolCall{
		ID:        p.CallID,
		Name:      p.Tool,
		Arguments: string(args),
	}
}

// FilePart is a file attachment referenced by a message (user upload or a
// tool-produced artifact offered back to the model).
type FilePart struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	Type      string `json:"type"` // always "file"
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
}

func (p *FilePart) PartType() string      { return "file" }
func (p *FilePart) PartID() string        { return p.ID }
func (p *FilePart) PartSessionID() string { return p.SessionID }
func (p *FilePart) PartMessageID() string { return p.MessageID }

// rawPart peeks at a part's discriminator before committing to a concrete type.
type rawPart struct {
	Type string `json:"type"`
}

// UnmarshalPart decodes a stored or wire-format part into its concrete Go
// type based on the "type" discriminator field.
func UnmarshalPart(data []byte) (Part, error) {
	var raw rawPart
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case "reasoning":
		var p ReasoningPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "tool":
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "file":
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		// "text" and any unrecognized discriminator decode as text, matching
		// the pre-part-type wire format older stored sessions may still have.
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
}
