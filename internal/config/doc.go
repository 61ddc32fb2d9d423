// Package config handles configuration loading for chorus.
//
// # Overview
//
// Configuration is a YAML file with environment variable expansion. Every
// field has a default, so a missing file is not an error for the CLI.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from CHORUS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/chorus/chorus.yaml
//  3. ~/.config/chorus/chorus.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	store:
//	  path: "${HOME}/chorus/chorus.db"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Example
//
//	store:
//	  backend: sqlite          # memory | sqlite | pebble
//	  path: ~/.local/share/chorus/chorus.db
//
//	generation:
//	  service: openai          # openai | azure; overrides the stored selection
//	  model: gpt-4             # overrides the stored selection
//	  stream_timeout: "2m"
//
//	auth:
//	  env_file: .env           # dotenv fallback for OPENAI_API_KEY and AZURE_OPENAI_*
//	  secret_env: CHORUS_SECRET  # passphrase variable for sealing stored credentials
//
//	personas:
//	  path: ~/.config/chorus/personas.toml
//
//	logging:
//	  level: info              # debug | info | warn | error
//	  format: text             # text | json
//
//	metrics:
//	  enabled: false
//	  addr: 127.0.0.1:9464
//	  path: /metrics
//
// # Persona Catalog
//
// Assistants seeded into new chats come from a TOML catalog:
//
//	[[persona]]
//	name = "Alice"
//	description = "A friendly generalist"
//	instructions = "Answer plainly."
//
// Without a catalog the built-in Alice and Bob personas are used.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax ("30s", "2m").
package config
