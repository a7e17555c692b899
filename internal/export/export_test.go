package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RichardoC/pad-chat/internal/models"
)

func testConversation() *models.Conversation {
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	return &models.Conversation{
		ID:       "chat-1792400400000",
		Title:    "Cat Picture Question",
		Created:  models.MillisOf(created),
		LastUsed: models.MillisOf(created.Add(time.Minute)),
		Messages: []models.Message{
			{Role: models.RoleUser, Content: models.Parts(
				models.Part{Type: models.PartText, Text: "what is this"},
				models.Part{Type: models.PartImageURL, ImageURL: &models.ImageURL{URL: "http://localhost:8100/files/a.png"}},
			)},
			models.TextMessage(models.RoleAssistant, "A **cat**.\n\n```go\nfmt.Println(\"meow\")\n```"),
		},
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{format: "json", ext: "json"},
		{format: "yaml", ext: "yaml"},
		{format: "yml", ext: "yaml"},
		{format: "md", ext: "md"},
		{format: "markdown", ext: "md"},
		{format: "jsonl", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := NewExporter(tt.format)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unsupported format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.Extension())
		})
	}
}

func TestJSONExporter_MatchesStoredShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(testConversation(), &buf))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "chat-1792400400000", raw["id"])
	assert.Contains(t, raw, "created")
	assert.Contains(t, raw, "lastUsed")

	msgs := raw["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.IsType(t, []any{}, msgs[0].(map[string]any)["content"])
	assert.IsType(t, "", msgs[1].(map[string]any)["content"])
}

func TestYAMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLExporter{}).Export(testConversation(), &buf))

	var out struct {
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		Messages []struct {
			Role    string `yaml:"role"`
			Content any    `yaml:"content"`
		} `yaml:"messages"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Cat Picture Question", out.Title)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "user", out.Messages[0].Role)
	assert.IsType(t, []any{}, out.Messages[0].Content)
	assert.Equal(t, "A **cat**.\n\n```go\nfmt.Println(\"meow\")\n```", out.Messages[1].Content)
}

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(testConversation(), &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Cat Picture Question\n"))
	assert.Contains(t, out, "**ID:** chat-1792400400000")
	assert.Contains(t, out, "**Messages:** 2")
	assert.Contains(t, out, "**User:**\n\nwhat is this\n\n![image 1](http://localhost:8100/files/a.png)")
	assert.Contains(t, out, "**Assistant:**\n\nA **cat**.")
	assert.Contains(t, out, "```go\nfmt.Println(\"meow\")\n```")
}

func TestMarkdownExporter_EmptyConversation(t *testing.T) {
	conv := &models.Conversation{ID: "chat-1", Title: models.PlaceholderTitle, Created: 1}
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(conv, &buf))
	assert.Contains(t, buf.String(), "**Messages:** 0")
	assert.NotContains(t, buf.String(), "Last used")
}
