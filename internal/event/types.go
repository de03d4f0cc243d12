package event

import "github.com/eibrahimli/anvil/pkg/types"

// SessionCreatedData is the payload for SessionCreated.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// SessionUpdatedData is the payload for SessionUpdated.
type SessionUpdatedData struct {
	Info *types.Session `json:"info"`
}

// SessionDeletedData is the payload for SessionDeleted.
type SessionDeletedData struct {
	Info *types.Session `json:"info"`
}

// MessageCreatedData is the payload for MessageCreated.
type MessageCreatedData struct {
	Info *types.Message `json:"info"`
}

// MessageUpdatedData is the payload for MessageUpdated.
type MessageUpdatedData struct {
	Info *types.Message `json:"info"`
}

// MessagePartUpdatedData is the payload for MessagePartUpdated: a part was
// created or mutated mid-stream. Delta carries just the new text for
// incremental text parts; full-part updates (tool state transitions,
// step markers) leave it empty since Part already holds the whole value.
type MessagePartUpdatedData struct {
	Part  types.Part `json:"part"`
	Delta string     `json:"delta,omitempty"`
}

// SessionStatusInfo describes what a session is doing right now.
type SessionStatusInfo struct {
	Type string `json:"type"` // "busy" | "idle"
}

// SessionStatusData is the payload for SessionStatus.
type SessionStatusData struct {
	SessionID string             `json:"sessionID"`
	Status    SessionStatusInfo  `json:"status"`
}

// SessionIdleData is the payload for SessionIdle: a processing run finished,
// successfully or not, and the session accepts new input again.
type SessionIdleData struct {
	SessionID string `json:"sessionID"`
}

// PermissionRequiredData is the payload for PermissionRequired: the
// SDK-facing echo of a permission request, distinct from RequestConfirmation
// which the TUI's own confirmation bus uses for the same underlying ask.
type PermissionRequiredData struct {
	ID             string `json:"id"`
	SessionID      string `json:"sessionID"`
	PermissionType string `json:"permissionType"`
}

// PermissionUpdatedData is the payload for PermissionUpdated: a permission
// request was resolved automatically (e.g. auto-approve mode) rather than
// through the interactive confirmation flow.
type PermissionUpdatedData struct {
	ID             string   `json:"id"`
	SessionID      string   `json:"sessionID"`
	PermissionType string   `json:"permissionType"`
	Pattern        []string `json:"pattern,omitempty"`
	Title          string   `json:"title,omitempty"`
}

// SessionErrorData is the payload for SessionError: a processing failure
// that aborted message generation before an assistant message could be
// produced at all (a partial assistant message instead carries its own
// types.Message.Error field).
type SessionErrorData struct {
	SessionID string              `json:"sessionID"`
	Error     *types.MessageError `json:"error"`
}

// ChatTokenData is the payload for ChatToken: a streaming text delta.
type ChatTokenData struct {
	SessionID string `json:"sessionID"`
	Token     string `json:"token"`
}

// FileEditedData is the payload for FileEdited.
type FileEditedData struct {
	File string `json:"file"`
}

// SessionDiffData is the payload for SessionDiff.
type SessionDiffData struct {
	SessionID string               `json:"sessionID"`
	Summary   types.SessionSummary `json:"summary"`
}

// ConfirmationKind is the UI affordance a confirmation event requests.
type ConfirmationKind string

const (
	ConfirmationShell      ConfirmationKind = "shell"
	ConfirmationDiff       ConfirmationKind = "diff"
	ConfirmationPermission ConfirmationKind = "permission"
)

// RequestConfirmationData is the payload for RequestConfirmation.
type RequestConfirmationData struct {
	ID               string           `json:"id"`
	SessionID        string           `json:"session_id"`
	Kind             ConfirmationKind `json:"kind"`
	Command          string           `json:"command,omitempty"`
	FilePath         string           `json:"file_path,omitempty"`
	OldContent       *string          `json:"old_content,omitempty"`
	NewContent       *string          `json:"new_content,omitempty"`
	Title            string           `json:"title,omitempty"`
	SuggestedPattern string           `json:"suggested_pattern,omitempty"`
}

// ConfirmationResolvedData is the payload for ConfirmationResolved.
type ConfirmationResolvedData struct {
	ID      string `json:"id"`
	Allowed bool   `json:"allowed"`
}

// PermissionRepliedData is the payload for PermissionReplied: the SDK-facing
// echo of a resolved permission request, distinct from ConfirmationResolved
// which the TUI's own confirmation bus uses for the same underlying action.
type PermissionRepliedData struct {
	PermissionID string `json:"permissionID"`
	SessionID    string `json:"sessionID"`
	Response     string `json:"response"` // "once" | "always" | "reject"
}

// QuestionOption is one selectable answer to a question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
}

// Question is one multi-choice (optionally multi-select) prompt.
type Question struct {
	ID       string           `json:"id"`
	Header   string           `json:"header"`
	Question string           `json:"question"`
	Options  []QuestionOption `json:"options"`
	Multiple bool             `json:"multiple"`
}

// AgentQuestionData is the payload for AgentQuestion.
type AgentQuestionData struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// VcsBranchUpdatedData is the payload for VcsBranchUpdated.
type VcsBranchUpdatedData struct {
	Branch string `json:"branch"`
}

// ClientToolRegisteredData is the payload for ClientToolRegistered.
type ClientToolRegisteredData struct {
	ClientID string   `json:"clientID"`
	ToolIDs  []string `json:"toolIDs"`
}

// ClientToolUnregisteredData is the payload for ClientToolUnregistered.
type ClientToolUnregisteredData struct {
	ClientID string   `json:"clientID"`
	ToolIDs  []string `json:"toolIDs"`
}

// ClientToolRequestData is the payload for ClientToolRequest. Request holds
// an internal/clienttool.ExecutionRequest value — typed as any here rather
// than imported directly, since internal/clienttool already imports this
// package to publish these events and a concrete dependency would cycle.
type ClientToolRequestData struct {
	ClientID string `json:"clientID"`
	Request  any    `json:"request"`
}

// ClientToolStatusData is the payload for the ClientToolExecuting/Completed/
// Failed transitions a single tool call goes through.
type ClientToolStatusData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	CallID    string `json:"callID"`
	Tool      string `json:"tool"`
	ClientID  string `json:"clientID"`
	Success   bool   `json:"success,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TaskUpdatedData is the payload for TaskUpdated.
type TaskUpdatedData struct {
	Task types.Task `json:"task"`
}
