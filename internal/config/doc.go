// Package config provides configuration management for atom.
//
// Configuration is loaded from a single directory, ~/.config/atom by default
// or the directory given with --config-path. The directory holds:
//   - config.yaml (optional; defaults apply when absent)
//   - credentials/token.json (written by `atom login`)
//   - atom.db (local conversation store)
//   - history (readline history of the chat REPL)
//
// Precedence is defaults, then config.yaml, then environment variables:
//
//	ATOM_SERVER_URL, ATOM_CLIENT_ID (fallback GITHUB_CLIENT_ID),
//	AI_PROVIDER, GOOGLE_GENERATIVE_AI_API_KEY, GROQ_API_KEY, GROQ_MODEL,
//	ATOM_MODEL, ATOM_DB_PATH, ATOM_LOG_LEVEL
//
// Relative paths in the file are resolved against the config directory.
//
// # Example
//
//	server:
//	  url: https://atom.example.com
//	  clientId: atom-cli
//	model:
//	  provider: groq
//	  name: llama-3.3-70b-versatile
//	chat:
//	  contextMessages: 6
//	  persistPartial: false
//	logging:
//	  level: info
//	  file: atom.log
package config
