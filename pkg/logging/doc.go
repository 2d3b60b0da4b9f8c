// Package logging provides the subsystem-tagged logger used across atom.
//
// It is a thin layer over the standard slog package. Every entry carries a
// subsystem identifier so that log lines from the device authorization client,
// the credential store and the chat session can be told apart.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelWarn, os.Stderr)
//
//	logging.Info("DeviceAuth", "Requesting device code from %s", serverURL)
//	logging.Debug("Chat", "Assembled %d context messages", n)
//	logging.Error("CredentialStore", err, "Failed to persist credential")
//
// Interactive commands redirect logs to a file with InitForFile so that log
// output never interleaves with a streamed model response.
//
// # Audit events
//
// Audit records security-relevant events (credential stored, credential
// cleared) as structured attributes. Token values must never be passed.
package logging
