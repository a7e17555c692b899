package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RichardoC/pad-chat/internal/models"
)

// MarkdownExporter writes a readable transcript. Image parts become
// markdown image links.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(conv *models.Conversation, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "**ID:** %s  \n", conv.ID)
	fmt.Fprintf(&b, "**Created:** %s  \n", conv.Created.Time().Format(time.RFC3339))
	if conv.LastUsed != 0 {
		fmt.Fprintf(&b, "**Last used:** %s  \n", conv.LastUsed.Time().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "**Messages:** %d\n\n", len(conv.Messages))

	for _, msg := range conv.Messages {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "**%s:**\n\n", roleLabel(msg.Role))
		if text := msg.Content.String(); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
		for i, url := range msg.Content.ImageURLs() {
			fmt.Fprintf(&b, "![image %d](%s)\n\n", i+1, url)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}
