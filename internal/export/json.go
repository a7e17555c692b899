package export

import (
	"encoding/json"
	"io"

	"github.com/RichardoC/pad-chat/internal/models"
)

// JSONExporter writes the conversation exactly as it is stored, indented.
type JSONExporter struct{}

func (e *JSONExporter) Export(conv *models.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(conv)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
