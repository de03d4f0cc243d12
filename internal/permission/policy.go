// policy.go evaluates the file-based PermissionConfig (pkg/types), the
// bash/read/write/edit rule sets loaded from .anvil/anvil.json, as opposed
// to the in-memory per-agent AgentPermission used by the multi-agent
// registry. File tools (read_file/write_file/edit_file) consult this policy
// for path scoping; Checker (checker.go) drives the interactive Ask flow
// shared by both permission models.
package permission

import (
	"os/user"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/eibrahimli/anvil/pkg/types"
)

// EvaluateRule scans tp.Rules in declaration order and returns the first
// glob match's action; absent a match it returns tp.Default.
func EvaluateRule(tp types.ToolPermission, input string) types.Action {
	for _, rule := range tp.Rules {
		if GlobMatch(rule.Pattern, input) {
			return rule.Action
		}
	}
	if tp.Default == "" {
		return types.ActionAsk
	}
	return tp.Default
}

// GlobMatch matches a glob-style permission pattern against input. "*"
// alone matches anything; otherwise doublestar glob semantics apply, with
// a plain non-glob pattern falling back to an exact match so bare paths
// and command names still match literally.
func GlobMatch(pattern, input string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == input
	}
	ok, err := doublestar.Match(pattern, input)
	if err != nil {
		return false
	}
	return ok
}

// ExpandTilde replaces a leading "~" with the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" {
		if u, err := user.Current(); err == nil {
			return u.HomeDir
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if u, err := user.Current(); err == nil {
			return filepath.Join(u.HomeDir, path[2:])
		}
	}
	return path
}

// PathVariants returns the deduplicated equivalence class of absolute and
// workspace-relative forms of path, so an "always allow" decision on one
// form also covers the other.
func PathVariants(path, workspaceRoot string) []string {
	expanded := ExpandTilde(path)
	abs := expanded
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workspaceRoot, abs)
	}
	abs = filepath.Clean(abs)

	variants := []string{abs}
	if rel, err := filepath.Rel(workspaceRoot, abs); err == nil && !strings.HasPrefix(rel, "..") {
		if rel != abs {
			variants = append(variants, rel)
		}
	}
	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// CheckPathAccess allows a path that canonicalises inside workspaceRoot;
// otherwise it takes the longest-prefix match against externalDirs, or
// Ask if nothing matches.
func CheckPathAccess(path, workspaceRoot string, externalDirs map[string]types.Action) types.Action {
	expanded := ExpandTilde(path)
	abs := expanded
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(workspaceRoot, abs)
	}
	abs = filepath.Clean(abs)

	root := filepath.Clean(workspaceRoot)
	if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return types.ActionAllow
	}

	best := ""
	action := types.ActionAsk
	for prefix, a := range externalDirs {
		p := filepath.Clean(ExpandTilde(prefix))
		if abs == p || strings.HasPrefix(abs, p+string(filepath.Separator)) {
			if len(p) > len(best) {
				best = p
				action = a
			}
		}
	}
	return action
}

// MergePermissionConfig merges local over global: rule lists are
// concatenated global-then-local (EvaluateRule returns the first match, so
// where a global and a local rule both match an input the global one
// decides), defaults use local when set else global, and
// ExternalDirectory is local-only when non-empty.
func MergePermissionConfig(global, local types.PermissionConfig) types.PermissionConfig {
	return types.PermissionConfig{
		Bash:  mergeToolPermission(global.Bash, local.Bash),
		Read:  mergeToolPermission(global.Read, local.Read),
		Write: mergeToolPermission(global.Write, local.Write),
		Edit:  mergeToolPermission(global.Edit, local.Edit),
		Skill: mergeToolPermission(global.Skill, local.Skill),
		ExternalDirectory: func() map[string]types.Action {
			if len(local.ExternalDirectory) > 0 {
				return local.ExternalDirectory
			}
			return global.ExternalDirectory
		}(),
	}
}

func mergeToolPermission(global, local types.ToolPermission) types.ToolPermission {
	out := types.ToolPermission{Default: global.Default}
	if local.Default != "" {
		out.Default = local.Default
	}
	out.Rules = append(append([]types.Rule{}, global.Rules...), local.Rules...)
	return out
}
