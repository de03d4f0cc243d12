package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eibrahimli/anvil/internal/event"
	"github.com/eibrahimli/anvil/internal/permission"
	"github.com/eibrahimli/anvil/pkg/types"
)

const writeDescription = `Writes content to a file on the local filesystem.

Usage:
- The file_path parameter must be an absolute path
- This tool will overwrite existing files
- Parent directories will be created if they don't exist
- ALWAYS prefer editing existing files over creating new ones`

// WriteTool implements file writing.
type WriteTool struct {
	workDir     string
	permChecker *permission.Checker
	toolPerm    types.ToolPermission
	externalDir map[string]types.Action
}

// WriteInput represents the input for the write tool.
// SDK compatible: uses camelCase field names to match TypeScript.
type WriteInput struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

// WriteToolOption configures the write tool.
type WriteToolOption func(*WriteTool)

// WithWritePermissionChecker sets the permission checker used for path
// scoping and content rules.
func WithWritePermissionChecker(checker *permission.Checker) WriteToolOption {
	return func(t *WriteTool) { t.permChecker = checker }
}

// WithWriteToolPermission sets the content permission rules.
func WithWriteToolPermission(tp types.ToolPermission) WriteToolOption {
	return func(t *WriteTool) { t.toolPerm = tp }
}

// WithWriteExternalDirs sets the external_directory rules.
func WithWriteExternalDirs(dirs map[string]types.Action) WriteToolOption {
	return func(t *WriteTool) { t.externalDir = dirs }
}

// NewWriteTool creates a new write tool.
func NewWriteTool(workDir string, opts ...WriteToolOption) *WriteTool {
	t := &WriteTool{workDir: workDir, toolPerm: types.ToolPermission{Default: types.ActionAsk}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WriteTool) ID() string { return "write_file" }
func (t *WriteTool) Description() string { return writeDescription }

func (t *WriteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to write"
			},
			"content": {
				"type": "string",
				"description": "The content to write to the file"
			}
		},
		"required": ["filePath", "content"]
	}`)
}

func (t *WriteTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params WriteInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	workDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}
	resolved, err := checkPathScope(ctx, params.FilePath, workDir, t.permChecker, t.toolPerm, t.externalDir, permission.PermWrite, toolCtx)
	if err != nil {
		return nil, err
	}
	params.FilePath = resolved

	// Ensure parent directory exists
	dir := filepath.Dir(params.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(params.FilePath, []byte(params.Content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	// Publish file edited event (SDK compatible: just file path)
	if toolCtx != nil && toolCtx.SessionID != "" {
		event.Publish(event.Event{
			Type: event.FileEdited,
			Data: event.FileEditedData{
				File: params.FilePath,
			},
		})
	}

	return &Result{
		Title: fmt.Sprintf("Wrote %s", filepath.Base(params.FilePath)),
		Output: fmt.Sprintf("Successfully wrote %d bytes to %s",
			len(params.Content), params.FilePath),
		Metadata: map[string]any{
			"file":  params.FilePath,
			"bytes": len(params.Content),
		},
	}, nil
}
