package types

// Config is the top-level shape of anvil.json (global and workspace
// layers), merged with workspace settings taking precedence.
type Config struct {
	Model        string                    `json:"model,omitempty"`
	SmallModel   string                    `json:"small_model,omitempty"` // for fast tasks (titles, summaries)
	Provider     map[string]ProviderConfig `json:"provider,omitempty"`
	Permission   *PermissionConfig         `json:"permission,omitempty"`
	Instructions []string                  `json:"instructions,omitempty"`
	Agent        map[string]AgentConfig    `json:"agent,omitempty"`
	LSP          *LSPConfig                `json:"lsp,omitempty"`
	MCP          *MCPSection               `json:"mcp,omitempty"`
	Keybinds     map[string]string         `json:"keybinds,omitempty"`
}

// DefaultKeybinds returns the built-in action->chord bindings the TUI falls
// back to for any action the user hasn't overridden.
func DefaultKeybinds() map[string]string {
	return map[string]string{
		"app_help":         "ctrl+h",
		"app_exit":         "ctrl+c",
		"session_new":      "ctrl+n",
		"session_list":     "ctrl+l",
		"session_interrupt": "esc",
		"session_compact":  "ctrl+t",
		"message_redo":     "ctrl+r",
		"input_newline":    "shift+enter",
		"input_submit":     "enter",
	}
}

// MergeKeybinds overlays override onto base, action by action, and returns
// the merged map. base is never mutated.
func MergeKeybinds(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for action, chord := range base {
		merged[action] = chord
	}
	for action, chord := range override {
		if chord != "" {
			merged[action] = chord
		}
	}
	return merged
}

// ProviderConfig configures one model provider.
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

// AgentConfig configures a named subagent profile, overriding or extending
// one of the built-in agents when its name matches, or defining a new
// custom agent otherwise.
type AgentConfig struct {
	Model        string          `json:"model,omitempty"`
	Provider     string          `json:"provider,omitempty"`
	Instructions []string        `json:"instructions,omitempty"`
	Description  string          `json:"description,omitempty"`
	Prompt       string          `json:"prompt,omitempty"`
	Mode         string          `json:"mode,omitempty"` // "primary" | "subagent" | "all"
	Temperature  *float64        `json:"temperature,omitempty"`
	TopP         *float64        `json:"top_p,omitempty"`
	Color        string          `json:"color,omitempty"`
	Tools        map[string]bool `json:"tools,omitempty"`
}

// LSPConfig configures language-server integration.
type LSPConfig struct {
	Enabled bool     `json:"enabled"`
	Servers []string `json:"servers,omitempty"`
}

// MCPSection is the top-level "mcp" config key: a named set of server configs.
type MCPSection struct {
	Enabled bool                 `json:"enabled"`
	Servers map[string]MCPConfig `json:"servers,omitempty"`
}

// MCPConfig configures one MCP server entry. Type is "local" (stdio
// subprocess) or "remote" (HTTP+SSE).
type MCPConfig struct {
	Type        string            `json:"type"`
	Command     []string          `json:"command,omitempty"`
	URL         string            `json:"url,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Enabled     bool              `json:"enabled"`
	Timeout     int               `json:"timeout,omitempty"`
}
