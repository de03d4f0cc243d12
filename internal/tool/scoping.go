package tool

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/eibrahimli/anvil/internal/permission"
	"github.com/eibrahimli/anvil/pkg/types"
)

// checkPathScope enforces the workspace-boundary security check shared by
// every tool that accepts a path: expand ~, resolve relative to workDir,
// consult external_directory rules for paths outside the workspace, then
// the tool's own content rules against the literal path the model
// supplied. It returns the resolved absolute path.
func checkPathScope(
	ctx context.Context,
	rawPath, workDir string,
	permChecker *permission.Checker,
	toolPerm types.ToolPermission,
	externalDirs map[string]types.Action,
	permType permission.PermissionType,
	toolCtx *Context,
) (string, error) {
	expanded := permission.ExpandTilde(rawPath)
	abs := expanded
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workDir, abs)
	}
	abs = filepath.Clean(abs)

	locationAction := permission.CheckPathAccess(abs, workDir, externalDirs)
	contentAction := permission.EvaluateRule(toolPerm, rawPath)
	action := strictest(locationAction, contentAction)

	switch action {
	case types.ActionAllow:
		return abs, nil
	case types.ActionDeny:
		return "", &permission.RejectedError{
			SessionID: sessionID(toolCtx),
			Type:      permType,
			CallID:    callID(toolCtx),
			Message:   fmt.Sprintf("access to %s is denied by permission configuration", rawPath),
		}
	}

	// ActionAsk
	if permChecker == nil || toolCtx == nil {
		return abs, nil
	}
	patterns := permission.PathVariants(rawPath, workDir)
	if err := permChecker.Ask(ctx, permission.Request{
		Type:      permType,
		Pattern:   patterns,
		SessionID: toolCtx.SessionID,
		MessageID: toolCtx.MessageID,
		CallID:    toolCtx.CallID,
		Title:     rawPath,
		Metadata: map[string]any{
			"path": abs,
		},
	}); err != nil {
		return "", err
	}
	return abs, nil
}

func sessionID(tc *Context) string {
	if tc == nil {
		return ""
	}
	return tc.SessionID
}

func callID(tc *Context) string {
	if tc == nil {
		return ""
	}
	return tc.CallID
}

// strictest returns the more restrictive of two actions: Deny > Ask > Allow.
func strictest(a, b types.Action) types.Action {
	rank := map[types.Action]int{types.ActionAllow: 0, types.ActionAsk: 1, types.ActionDeny: 2}
	if rank[a] >= rank[b] {
		return a
	}
	return b
}
