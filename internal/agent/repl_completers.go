package agent

import (
	"github.com/chzyer/readline"
)

// createCompleter completes slash commands and their aliases, plus the
// plain exit words.
func (r *REPL) createCompleter() *readline.PrefixCompleter {
	names := r.commands.AllCompletions()
	items := make([]readline.PrefixCompleterInterface, 0, len(names)+2)
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	items = append(items,
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
	return readline.NewPrefixCompleter(items...)
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
