// Package agent provides the interactive chat REPL of atom.
//
// The REPL reads lines with readline (history file, tab completion of slash
// commands) and hands every message to a chat.Controller, printing the reply
// chunk by chunk as the model streams it.
//
// # Quick Start
//
//	logger := agent.NewLoggerWithWriter(false, true, os.Stdout)
//	repl := agent.NewREPL(controller, repo, conv, logger,
//	    agent.WithHistoryFile(cfg.Chat.HistoryFile),
//	    agent.WithCredentialWatcher(store),
//	)
//	if err := repl.Run(ctx); err != nil {
//	    return err
//	}
//
// # Commands
//
//	/help, /?        Show the available commands
//	/history         Print the conversation so far
//	/title [text]    Show or rename the conversation
//	/exit, /quit     End the session (plain "exit" and "quit" work too)
//
// Ctrl+C while a reply streams stops that reply only; Ctrl+D ends the session.
//
// # Session end
//
// Besides the user ending it, a session ends when the credential file is
// removed by another process (e.g. "atom logout" in a second terminal). Run
// then returns ErrLoggedOut, which wraps cli.AuthRequiredError.
//
// Quota errors from the model provider are shown as a box and the session
// continues; a rejected API key ends it.
package agent
