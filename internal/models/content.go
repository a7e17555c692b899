package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	PartText     = "text"
	PartImageURL = "image_url"
)

type ImageURL struct {
	URL string `json:"url" yaml:"url"`
}

type Part struct {
	Type     string    `json:"type" yaml:"type"`
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// Content is either plain text or a list of parts. It encodes as a JSON
// string in the first case and as an array in the second, matching the
// chat completion wire format.
type Content struct {
	text  string
	parts []Part
}

func Text(s string) Content {
	return Content{text: s}
}

func Parts(parts ...Part) Content {
	if parts == nil {
		parts = []Part{}
	}
	return Content{parts: parts}
}

func (c Content) IsParts() bool {
	return c.parts != nil
}

// Parts returns a copy of the part list, or nil for plain text content.
func (c Content) Parts() []Part {
	if c.parts == nil {
		return nil
	}
	out := make([]Part, len(c.parts))
	copy(out, c.parts)
	return out
}

// String returns the text of the content. For part lists the text parts
// are joined with newlines and image parts are left out.
func (c Content) String() string {
	if c.parts == nil {
		return c.text
	}
	var texts []string
	for _, p := range c.parts {
		if p.Type == PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ImageURLs lists the image references carried by the content.
func (c Content) ImageURLs() []string {
	var urls []string
	for _, p := range c.parts {
		if p.Type == PartImageURL && p.ImageURL != nil {
			urls = append(urls, p.ImageURL.URL)
		}
	}
	return urls
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.parts != nil {
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Content{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	case data[0] == '[':
		var parts []Part
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = Parts(parts...)
		return nil
	default:
		return fmt.Errorf("message content must be a string or an array, got %s", data[:1])
	}
}

func (c Content) MarshalYAML() (interface{}, error) {
	if c.parts != nil {
		return c.parts, nil
	}
	return c.text, nil
}
