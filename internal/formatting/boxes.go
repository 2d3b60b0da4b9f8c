package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor  = lipgloss.Color("#00FFFF")
	mutedColor   = lipgloss.Color("#7D7D7D")
	successColor = lipgloss.Color("#00FF00")
	alertColor   = lipgloss.Color("#FFBF00")
	dangerColor  = lipgloss.Color("#FF0055")
)

// Box draws body inside a rounded border with a bold title line.
func Box(title, body string, color lipgloss.Color) string {
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)
	heading := lipgloss.NewStyle().Bold(true).Foreground(color)

	content := body
	if title != "" {
		content = heading.Render(title)
		if body != "" {
			content += "\n\n" + body
		}
	}
	return frame.Render(content)
}

// HeaderBox announces a chat session.
func HeaderBox(title, mode string) string {
	body := lipgloss.NewStyle().Foreground(mutedColor).Render("Mode: " + mode)
	return Box(title, body, accentColor)
}

// InfoBox shows a neutral message.
func InfoBox(title, body string) string {
	return Box(title, body, accentColor)
}

// SuccessBox shows a completed action.
func SuccessBox(title, body string) string {
	return Box(title, body, successColor)
}

// ErrorBox shows a failure.
func ErrorBox(title, body string) string {
	return Box(title, body, dangerColor)
}

// QuotaBox tells the user the model quota is exhausted.
func QuotaBox(provider string, retryAfter time.Duration) string {
	lines := []string{fmt.Sprintf("The %s model quota has been exceeded.", provider)}
	if retryAfter > 0 {
		lines = append(lines, fmt.Sprintf("Please retry in %s.", retryAfter.Round(time.Second)))
	} else {
		lines = append(lines, "Please retry shortly.")
	}
	return Box("Rate limited", strings.Join(lines, "\n"), alertColor)
}

// CommandHelp renders name/description pairs as an aligned help panel.
func CommandHelp(title string, commands [][2]string) string {
	width := 0
	for _, c := range commands {
		width = max(width, lipgloss.Width(c[0]))
	}

	name := lipgloss.NewStyle().Foreground(accentColor)
	desc := lipgloss.NewStyle().Foreground(mutedColor)

	lines := make([]string, 0, len(commands))
	for _, c := range commands {
		pad := strings.Repeat(" ", width-lipgloss.Width(c[0])+2)
		lines = append(lines, name.Render(c[0])+pad+desc.Render(c[1]))
	}
	return Box(title, strings.Join(lines, "\n"), mutedColor)
}
