// Package config handles configuration loading for emberchat.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Every field has a built-in default, so the application runs
// with no config file at all.
//
// # Configuration File
//
// Default location: $XDG_CONFIG_HOME/emberchat/config.yaml, falling back to
// ~/.config/emberchat/config.yaml. Override with EMBERCHAT_CONFIG.
//
// # Sections
//
// Server:
//
//	server:
//	  addr: "127.0.0.1:8136"   # loopback API for the desktop UI
//
// Storage:
//
//	database:
//	  path: ""                 # default: <data dir>/chat.db
//	images:
//	  dir: ""                  # default: <data dir>/images
//
// Inference server:
//
//	ollama:
//	  base_url: "http://localhost:11434"
//	  timeout: "120s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Environment Variable Expansion
//
// Values can reference environment variables with ${VAR_NAME}; unset
// variables expand to the empty string.
//
// # Data Directory
//
// DefaultDataDir resolves the per-user data directory:
// $XDG_DATA_HOME/emberchat, then ~/.local/share/emberchat, then
// ~/.emberchat, then the current directory as a last resort.
package config
