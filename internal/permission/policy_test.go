package permission

import (
	"testing"

	"github.com/eibrahimli/anvil/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateRule(t *testing.T) {
	tp := types.ToolPermission{
		Default: types.ActionAsk,
		Rules: []types.Rule{
			{Pattern: "*.env", Action: types.ActionDeny},
			{Pattern: "*.env.example", Action: types.ActionAllow},
			{Pattern: "src/**", Action: types.ActionAllow},
		},
	}

	assert.Equal(t, types.ActionDeny, EvaluateRule(tp, ".env"))
	assert.Equal(t, types.ActionAllow, EvaluateRule(tp, "src/main.go"))
	assert.Equal(t, types.ActionAsk, EvaluateRule(tp, "README.md"))
}

func TestEvaluateRuleFirstMatchWins(t *testing.T) {
	tp := types.ToolPermission{
		Default: types.ActionAsk,
		Rules: []types.Rule{
			{Pattern: "*.env.*", Action: types.ActionDeny},
			{Pattern: "*.env.example", Action: types.ActionAllow},
		},
	}

	// *.env.* matches first and wins even though a later, more specific
	// rule would also match.
	assert.Equal(t, types.ActionDeny, EvaluateRule(tp, ".env.example"))
}

func TestGlobMatch(t *testing.T) {
	assert.True(t, GlobMatch("*", "anything"))
	assert.True(t, GlobMatch("*.go", "main.go"))
	assert.False(t, GlobMatch("*.go", "main.rs"))
	assert.True(t, GlobMatch("ls", "ls"))
	assert.False(t, GlobMatch("ls", "ls -la"))
}

func TestPathVariantsDeduplicates(t *testing.T) {
	variants := PathVariants("a.txt", "/workspace")
	assert.Contains(t, variants, "/workspace/a.txt")
	assert.Contains(t, variants, "a.txt")

	again := PathVariants("/workspace/a.txt", "/workspace")
	seen := make(map[string]bool)
	for _, v := range again {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}

func TestCheckPathAccessInsideWorkspace(t *testing.T) {
	action := CheckPathAccess("src/main.go", "/workspace", nil)
	assert.Equal(t, types.ActionAllow, action)
}

func TestCheckPathAccessOutsideWorkspaceNoRule(t *testing.T) {
	action := CheckPathAccess("/etc/passwd", "/workspace", nil)
	assert.Equal(t, types.ActionAsk, action)
}

func TestCheckPathAccessExternalDirectoryLongestPrefix(t *testing.T) {
	externals := map[string]types.Action{
		"/tmp":      types.ActionAsk,
		"/tmp/safe": types.ActionAllow,
	}
	assert.Equal(t, types.ActionAllow, CheckPathAccess("/tmp/safe/file.txt", "/workspace", externals))
	assert.Equal(t, types.ActionAsk, CheckPathAccess("/tmp/other/file.txt", "/workspace", externals))
}

func TestMergePermissionConfigEmptyLocalEqualsGlobal(t *testing.T) {
	global := types.DefaultPermissionConfig()
	merged := MergePermissionConfig(global, types.PermissionConfig{})

	assert.Equal(t, global.Bash.Default, merged.Bash.Default)
	assert.Equal(t, global.Read.Rules, merged.Read.Rules)
	assert.Equal(t, global.ExternalDirectory, merged.ExternalDirectory)
}

func TestMergePermissionConfigConcatenatesRulesGlobalThenLocal(t *testing.T) {
	global := types.PermissionConfig{
		Bash: types.ToolPermission{Default: types.ActionAsk, Rules: []types.Rule{
			{Pattern: "rm *", Action: types.ActionDeny},
		}},
	}
	local := types.PermissionConfig{
		Bash: types.ToolPermission{Default: types.ActionAllow, Rules: []types.Rule{
			{Pattern: "git *", Action: types.ActionAllow},
		}},
	}

	merged := MergePermissionConfig(global, local)
	assert.Equal(t, types.ActionAllow, merged.Bash.Default)
	assert.Equal(t, []types.Rule{
		{Pattern: "rm *", Action: types.ActionDeny},
		{Pattern: "git *", Action: types.ActionAllow},
	}, merged.Bash.Rules)
}

func TestMergePermissionConfigExternalDirectoryLocalOnly(t *testing.T) {
	global := types.PermissionConfig{ExternalDirectory: map[string]types.Action{"/a": types.ActionAsk}}
	local := types.PermissionConfig{ExternalDirectory: map[string]types.Action{"/b": types.ActionAllow}}

	merged := MergePermissionConfig(global, local)
	assert.Equal(t, local.ExternalDirectory, merged.ExternalDirectory)
}
