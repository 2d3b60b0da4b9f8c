package formatting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LuckySilver0021/atom/internal/conversation"
	pkgstrings "github.com/LuckySilver0021/atom/pkg/strings"
)

// TimeLayout is used for timestamps in tables.
const TimeLayout = "2006-01-02 15:04"

// ConversationView is the printable form of a conversation.
type ConversationView struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Mode      string    `json:"mode" yaml:"mode"`
	Messages  int       `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// NewConversationView converts a conversation and its message count.
func NewConversationView(c conversation.Conversation, messages int) ConversationView {
	return ConversationView{
		ID:        c.ID,
		Title:     c.Title,
		Mode:      string(c.Mode),
		Messages:  messages,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// WriteConversations prints a conversation listing, most recent first.
func WriteConversations(w io.Writer, format OutputFormat, views []ConversationView) error {
	if views == nil {
		views = []ConversationView{}
	}
	if handled, err := writeStructured(w, format, views); handled {
		return err
	}

	if len(views) == 0 {
		if format == FormatPlain {
			return nil
		}
		_, err := fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint("No conversations found"))
		return err
	}

	t := newTable(w, format)
	t.AppendHeader(header(format, "ID", "TITLE", "MODE", "MESSAGES", "UPDATED"))
	for _, v := range views {
		t.AppendRow(table.Row{
			v.ID,
			pkgstrings.TruncatePreview(v.Title, pkgstrings.DefaultPreviewMaxLen),
			v.Mode,
			v.Messages,
			v.UpdatedAt.Local().Format(TimeLayout),
		})
	}
	t.Render()

	if format == FormatTable {
		_, err := fmt.Fprintf(w, "\n%s %s %s\n",
			text.FgHiBlue.Sprint("Total:"),
			text.FgHiWhite.Sprint(len(views)),
			text.FgHiBlue.Sprint("conversations"))
		return err
	}
	return nil
}

// newTable creates a table writer styled for format.
func newTable(w io.Writer, format OutputFormat) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	if format == FormatPlain {
		style := table.StyleDefault
		style.Options.DrawBorder = false
		style.Options.SeparateColumns = false
		style.Options.SeparateHeader = false
		style.Options.SeparateRows = false
		style.Box.PaddingLeft = ""
		style.Box.PaddingRight = "   "
		style.Format.Header = text.FormatUpper
		t.SetStyle(style)
		return t
	}

	t.SetStyle(table.StyleRounded)
	return t
}

func header(format OutputFormat, names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		if format == FormatPlain {
			row[i] = n
		} else {
			row[i] = text.FgHiCyan.Sprint(n)
		}
	}
	return row
}
