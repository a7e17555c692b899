package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	roleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
)

// List renders the grouped conversation list. Empty buckets are omitted and
// the conversation with activeID is marked.
func List(b store.Buckets, activeID string, width int) string {
	if b.Len() == 0 {
		return dimStyle.Render("No conversations yet.") + "\n"
	}

	var sb strings.Builder
	for i, group := range b.Groups() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(headerStyle.Render(group.Label))
		sb.WriteString("\n")
		for _, conv := range group.Conversations {
			sb.WriteString(listRow(conv, conv.ID == activeID, width))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func listRow(conv *models.Conversation, active bool, width int) string {
	marker := "  "
	style := titleStyle
	if active {
		marker = "> "
		style = activeStyle
	}
	title := conv.Title
	if limit := width - len(conv.ID) - 6; limit > 3 && len([]rune(title)) > limit {
		title = string([]rune(title)[:limit-1]) + "…"
	}
	return fmt.Sprintf("%s%s  %s", marker, style.Render(title), idStyle.Render(conv.ID))
}

// Transcript renders every message of a conversation, each under its role.
func Transcript(conv *models.Conversation, width int, style string) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(conv.Title))
	sb.WriteString("\n")
	for _, msg := range conv.Messages {
		sb.WriteString("\n")
		sb.WriteString(roleStyle.Render(string(msg.Role)))
		sb.WriteString("\n")
		sb.WriteString(Markdown(msg.Content.String(), width, style))
		for _, url := range msg.Content.ImageURLs() {
			sb.WriteString(dimStyle.Render("[image] " + url))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
