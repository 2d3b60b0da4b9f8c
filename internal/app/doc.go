// Package app wires the components of atom together for one invocation.
//
// # Bootstrap
//
// NewApplication runs the startup sequence shared by every command:
//
//  1. A bootstrap logger at WARN (DEBUG with --debug) so configuration
//     problems are visible.
//  2. config.LoadConfig: defaults, then config.yaml, then environment.
//  3. Final logging setup: the configured level, optionally redirected to
//     logging.file so logs never interleave with streamed replies.
//  4. Validation of the server settings (model settings are validated only
//     when a chat session starts).
//  5. InitializeServices: credential store, SQLite database, user and
//     conversation repositories, and the caching session resolver.
//
// # Sessions
//
// RequireUser turns the stored credential into a user, failing with the
// cli auth errors the command layer maps to exit codes. RunSession builds the
// chat controller for the configured provider and hands it to the agent REPL.
//
//	application, err := app.NewApplication(app.NewConfig(debug, configPath))
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//
//	_, user, err := application.RequireUser(ctx)
//	if err != nil {
//	    return err
//	}
//	return application.RunSession(ctx, user, app.SessionOptions{Mode: conversation.ModeChat})
package app
