// Package session provides session management functionality.
package session

import (
	"context"

	"github.com/eibrahimli/anvil/internal/event"
	"github.com/eibrahimli/anvil/internal/storage"
	"github.com/eibrahimli/anvil/internal/todo"
	"github.com/eibrahimli/anvil/pkg/types"
)

// TodoPath returns the per-workspace TODO.md path.
func TodoPath(workspaceRoot string) string {
	return todo.Path(workspaceRoot)
}

// ParseTodoMarkdown parses the `.anvil/TODO.md` format.
func ParseTodoMarkdown(data []byte) ([]types.TodoInfo, error) {
	return todo.Parse(data)
}

// FormatTodoMarkdown renders todos into the `.anvil/TODO.md` shape.
func FormatTodoMarkdown(todos []types.TodoInfo) []byte {
	return todo.Format(todos)
}

// GetTodos reads and parses the workspace's TODO.md, returning an empty
// list if the file does not yet exist.
func GetTodos(ctx context.Context, workspaceRoot string) ([]types.TodoInfo, error) {
	return todo.Load(workspaceRoot)
}

// UpdateTodos assigns stable numeric ids to any todo missing one, writes
// the workspace's TODO.md, and publishes a todo-updated event.
func UpdateTodos(ctx context.Context, store *storage.Storage, sessionID, workspaceRoot string, todos []types.TodoInfo) error {
	saved, err := todo.Save(workspaceRoot, todos)
	if err != nil {
		return err
	}

	event.Publish(event.Event{
		Type: event.TodoUpdated,
		Data: map[string]any{
			"sessionID": sessionID,
			"todos":     saved,
		},
	})
	return nil
}
