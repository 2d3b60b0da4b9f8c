package agent

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/formatting"
)

// errExit is returned by the exit command to end the REPL.
var errExit = errors.New("exit")

// Command is a REPL command such as /help.
type Command struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
	Run         func(ctx context.Context, args []string) error
}

// Registry manages the available REPL commands and their aliases.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]string // alias -> primary command name
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register adds cmd and its aliases. A later registration with the same
// name replaces the earlier one.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// Get looks a command up by name or alias.
func (r *Registry) Get(name string) (*Command, bool) {
	if cmd, exists := r.commands[name]; exists {
		return cmd, true
	}
	if primary, exists := r.aliases[name]; exists {
		cmd, ok := r.commands[primary]
		return cmd, ok
	}
	return nil, false
}

// List returns the commands sorted by name.
func (r *Registry) List() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllCompletions returns every name and alias, sorted.
func (r *Registry) AllCompletions() []string {
	var completions []string
	for name := range r.commands {
		completions = append(completions, name)
	}
	for alias := range r.aliases {
		completions = append(completions, alias)
	}
	sort.Strings(completions)
	return completions
}

// registerCommands wires the built-in slash commands.
func (r *REPL) registerCommands() {
	r.commands.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/?"},
		Usage:       "/help",
		Description: "Show this help",
		Run: func(context.Context, []string) error {
			r.showHelp()
			return nil
		},
	})
	r.commands.Register(&Command{
		Name:        "/history",
		Usage:       "/history",
		Description: "Show the messages of this conversation",
		Run:         r.showHistory,
	})
	r.commands.Register(&Command{
		Name:        "/title",
		Usage:       "/title [new title]",
		Description: "Show or change the conversation title",
		Run:         r.title,
	})
	r.commands.Register(&Command{
		Name:        "/exit",
		Aliases:     []string{"/quit"},
		Usage:       "/exit",
		Description: "End the chat session",
		Run: func(context.Context, []string) error {
			return errExit
		},
	})
}

func (r *REPL) showHelp() {
	rows := make([][2]string, 0, len(r.commands.commands)+2)
	for _, cmd := range r.commands.List() {
		rows = append(rows, [2]string{cmd.Usage, cmd.Description})
	}
	rows = append(rows,
		[2]string{"exit, quit", "End the chat session"},
		[2]string{"Ctrl+C", "Stop the current reply"},
	)
	r.logger.OutputLine("%s", formatting.CommandHelp("Commands", rows))
}

func (r *REPL) showHistory(ctx context.Context, _ []string) error {
	msgs, err := r.repo.GetMessages(ctx, r.conv.ID)
	if err != nil {
		return err
	}
	return formatting.WriteTranscript(r.logger.Writer(), formatting.FormatTable, formatting.NewTranscriptView(*r.conv, msgs), r.markdown)
}

func (r *REPL) title(ctx context.Context, args []string) error {
	if len(args) == 0 {
		r.logger.OutputLine("%s", r.conv.Title)
		return nil
	}

	title := strings.Join(args, " ")
	if err := r.repo.UpdateTitle(ctx, r.conv.ID, title); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return errors.New("conversation no longer exists")
		}
		return err
	}
	r.conv.Title = title
	r.updatePrompt()
	r.logger.Success("Title changed to %q", title)
	return nil
}
