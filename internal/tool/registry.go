package tool

import (
	"sync"

	"github.com/eibrahimli/anvil/internal/agent"
	"github.com/eibrahimli/anvil/internal/logging"
	"github.com/eibrahimli/anvil/internal/permission"
	"github.com/eibrahimli/anvil/internal/storage"
	"github.com/eibrahimli/anvil/pkg/types"
)

var registryLog = logging.For("tool")

// Registry manages tool registration and lookup.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	workDir     string
	storage     *storage.Storage
	permChecker *permission.Checker
}

// NewRegistry creates a new tool registry.
func NewRegistry(workDir string, store *storage.Storage) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		workDir: workDir,
		storage: store,
	}
}

// Storage returns the storage instance.
func (r *Registry) Storage() *storage.Storage {
	return r.storage
}

// PermissionChecker returns the checker shared by every path- and
// shell-gated tool this registry built, or nil if it was constructed via
// NewRegistry directly.
func (r *Registry) PermissionChecker() *permission.Checker {
	return r.permChecker
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	registryLog.Debug().Str("tool", tool.ID()).Msg("registering tool")
	r.tools[tool.ID()] = tool
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// IDs returns all tool IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	return ids
}

// FunctionSchemas returns every registered tool wrapped in the OpenAI
// function-calling shape the agent step loop hands to model adapters.
func (r *Registry) FunctionSchemas() []FunctionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]FunctionSchema, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, ToFunctionSchema(t))
	}
	return schemas
}

// DefaultRegistry creates a registry with all built-in tools, enforcing
// path scoping and confirmation prompts under DefaultPermissionConfig.
func DefaultRegistry(workDir string, store *storage.Storage) *Registry {
	return NewRegistryWithPermissions(workDir, store, permission.NewChecker(), types.DefaultPermissionConfig())
}

// RegistryFromConfig builds a registry honoring a loaded configuration's
// permission policy, falling back to DefaultPermissionConfig when the
// config carries none.
func RegistryFromConfig(workDir string, store *storage.Storage, appConfig *types.Config) *Registry {
	permConfig := types.DefaultPermissionConfig()
	if appConfig != nil && appConfig.Permission != nil {
		permConfig = *appConfig.Permission
	}
	return NewRegistryWithPermissions(workDir, store, permission.NewChecker(), permConfig)
}

// NewRegistryWithPermissions creates a registry with all built-in tools,
// wiring checker and permConfig into every tool that accepts a path or
// runs a shell command.
func NewRegistryWithPermissions(workDir string, store *storage.Storage, checker *permission.Checker, permConfig types.PermissionConfig) *Registry {
	registryLog.Debug().Str("workDir", workDir).Msg("creating default registry")
	r := NewRegistry(workDir, store)
	r.permChecker = checker

	// Register core tools
	r.Register(NewReadTool(workDir,
		WithReadPermissionChecker(checker),
		WithReadToolPermission(permConfig.Read),
		WithReadExternalDirs(permConfig.ExternalDirectory),
	))
	r.Register(NewWriteTool(workDir,
		WithWritePermissionChecker(checker),
		WithWriteToolPermission(permConfig.Write),
		WithWriteExternalDirs(permConfig.ExternalDirectory),
	))
	r.Register(NewEditTool(workDir,
		WithEditPermissionChecker(checker),
		WithEditToolPermission(permConfig.Edit),
		WithEditExternalDirs(permConfig.ExternalDirectory),
	))
	r.Register(NewBashTool(workDir,
		WithPermissionChecker(checker),
		WithBashPermissions(bashPermissionMap(permConfig.Bash)),
		WithExternalDirAction(externalDirDefaultAction(permConfig.ExternalDirectory)),
	))
	r.Register(NewGlobTool(workDir))
	r.Register(NewGrepTool(workDir))
	r.Register(NewListTool(workDir))
	r.Register(NewWebFetchTool(workDir))

	// Register todo tools
	r.Register(NewTodoWriteTool(workDir, store))
	r.Register(NewTodoReadTool(workDir, store))

	// Register batch tool for parallel execution
	r.Register(NewBatchTool(workDir, r))

	// Note: TaskTool requires agent registry, register separately using RegisterTaskTool

	registryLog.Debug().Int("count", len(r.tools)).Strs("tools", r.IDs()).Msg("default registry created")
	return r
}

// bashPermissionMap converts the config-file ToolPermission shape (a default
// plus an ordered pattern/action list) into the map BashTool's wildcard
// matcher expects, keyed by command pattern. Default is carried as the "*"
// fallback entry MatchBashPermission already checks last.
func bashPermissionMap(tp types.ToolPermission) map[string]permission.PermissionAction {
	perms := make(map[string]permission.PermissionAction, len(tp.Rules)+1)
	for _, rule := range tp.Rules {
		perms[rule.Pattern] = permission.PermissionAction(rule.Action)
	}
	if tp.Default != "" {
		if _, exists := perms["*"]; !exists {
			perms["*"] = permission.PermissionAction(tp.Default)
		}
	}
	return perms
}

// externalDirDefaultAction picks the strictest action configured across
// external_directory rules, or Ask if none are set, for BashTool's single
// external-directory gate.
func externalDirDefaultAction(dirs map[string]types.Action) permission.PermissionAction {
	action := types.ActionAsk
	for _, a := range dirs {
		action = strictest(action, a)
	}
	return permission.PermissionAction(action)
}

// RegisterTaskTool registers the task tool with the given agent registry.
// This must be called separately after the agent registry is available.
func (r *Registry) RegisterTaskTool(agentReg *agent.Registry) {
	taskTool := NewTaskTool(r.workDir, agentReg)
	r.Register(taskTool)
	registryLog.Debug().Msg("registered task tool with agent registry")
}

// SetTaskExecutor sets the executor for the task tool.
// This enables actual subagent execution instead of placeholder responses.
func (r *Registry) SetTaskExecutor(executor TaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tool, ok := r.tools["task"]; ok {
		if taskTool, ok := tool.(*TaskTool); ok {
			taskTool.SetExecutor(executor)
			registryLog.Debug().Msg("task executor configured")
		}
	}
}
