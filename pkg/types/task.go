package types

// TaskStatus is the orchestrator's task lifecycle state.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one unit of orchestrator work. A task transitions Pending ->
// InProgress only once every id in Dependencies is Completed.
type Task struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	AssignedTo   string     `json:"assignedTo,omitempty"`
	Status       TaskStatus `json:"status"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Result       string     `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// TodoInfo is one item in a session's `.anvil/TODO.md` list. ID is a
// stable per-task numeric string assigned on first write.
type TodoInfo struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`   // pending | in_progress | completed | cancelled
	Priority string `json:"priority"` // high | medium | low
}
