// Package cli holds the pieces shared by atom's commands: the global flags,
// the error types that decide the process exit code, one-line user messages
// for every failure the core can report, confirmation prompts and the
// browser opener used during login.
//
// # Exit codes
//
//	0  success
//	1  general error
//	2  authentication required (no credential, or an expired one)
//	3  authentication failed (denied, expired device code, rejected client)
package cli
