// Package config provides configuration loading, merging, and path management for Anvil.
//
// # Configuration Loading
//
// The Load function reads configuration from these sources, in this order; a
// later source overrides an earlier one:
//
//  1. Global config: anvil.json, then anvil.jsonc, in the config directory
//     (~/.config/anvil/, or $XDG_CONFIG_HOME/anvil/)
//  2. Project config: .anvil/anvil.json, then .anvil/anvil.jsonc, in the given
//     directory (skipped when the directory is empty)
//  3. Environment variables
//
// A file that is missing or does not parse is skipped without an error.
//
// # Supported Formats
//
// Both file names are read the same way: // line comments and /* */ block
// comments are removed before the JSON is decoded.
//
// # Environment Placeholders
//
// Before decoding, every {env:NAME} placeholder in a config file is replaced by
// the value of the environment variable NAME, escaped for use inside a JSON
// string. A placeholder whose variable is not set is left as it is. Other
// placeholders, such as {file:path}, are not expanded.
//
//	{
//	  "provider": {
//	    "anthropic": {
//	      "api_key": "{env:ANTHROPIC_API_KEY}"
//	    }
//	  }
//	}
//
// # Configuration Merging
//
// Each file is decoded on its own and then merged into the result:
//   - model and small_model replace the earlier value when non-empty
//   - provider and agent entries are combined by name; a later entry with the
//     same name replaces the earlier one as a whole
//   - instructions from a later file are appended
//   - the lsp and mcp sections replace the earlier section as a whole
//   - keybinds are combined action by action
//   - permission configs are merged with permission.MergePermissionConfig
//
// # Path Management
//
// The package provides XDG Base Directory Specification compliant path management
// through the Paths type:
//   - Data: ~/.local/share/anvil (XDG_DATA_HOME)
//   - Config: ~/.config/anvil (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/anvil (XDG_CACHE_HOME)
//   - State: ~/.local/state/anvil (XDG_STATE_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
//
// # Environment Variable Overrides
//
// After the files are merged, these environment variables are applied:
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, AWS_ACCESS_KEY_ID -
//     API key of the anthropic, openai, google and bedrock providers, used
//     only when the config does not set one
//   - OPENCODE_MODEL - Override the default model
//   - OPENCODE_SMALL_MODEL - Override the small model
//
// # Usage Example
//
//	// Load configuration from the current directory
//	config, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Get standard paths
//	paths := config.GetPaths()
//	err = paths.EnsurePaths() // Create directories if they don't exist
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save configuration
//	err = config.Save(config, config.GlobalConfigPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Project Config Location
//
// Load reads the project config only from the .anvil directory of the given
// directory; parent directories are not searched.
package config