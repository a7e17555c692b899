// Package upload sends local files to the upload server and turns the
// result into message attachments.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// UnsupportedMediaError reports a file whose media type cannot be attached.
type UnsupportedMediaError struct {
	Path      string
	MediaType string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("file %s of type %s is not supported", filepath.Base(e.Path), e.MediaType)
}

type response struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type Client struct {
	http   *resty.Client
	url    string
	logger *zap.Logger
}

func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: resty.New(), url: url, logger: logger}
}

// Upload posts the file at path as multipart field "file" and returns the
// attachment referencing the stored copy. Only images are accepted; other
// files are rejected with UnsupportedMediaError before anything is sent.
func (c *Client) Upload(ctx context.Context, path string) (models.Attachment, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return models.Attachment{}, &UnsupportedMediaError{Path: path, MediaType: mtype.String()}
	}

	f, err := os.Open(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(path), f).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	if resp.IsError() {
		return models.Attachment{}, fmt.Errorf("upload of %s failed with status %d: %s",
			path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.Path == "" {
		return models.Attachment{}, fmt.Errorf("upload of %s returned no path", path)
	}

	att := models.Attachment{URL: out.Path, MediaType: out.Type}
	if att.MediaType == "" {
		att.MediaType = mtype.String()
	}
	c.logger.Debug("uploaded attachment",
		zap.String("file", path),
		zap.String("url", att.URL),
		zap.String("type", att.MediaType))
	return att, nil
}
