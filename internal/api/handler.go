package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxUploadBytes int64 = 20 << 20

	FilesPrefix = "/files/"
)

type Handler struct {
	dir       string
	publicURL string
	maxBytes  int64
	logger    *zap.Logger
}

// NewHandler serves uploads stored under dir. Responses reference stored
// files as publicURL + FilesPrefix + name.
func NewHandler(dir, publicURL string, maxBytes int64, logger *zap.Logger) (*Handler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
		logger:    logger,
	}, nil
}

type UploadResponse struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing form field 'file'", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		h.logger.Error("Failed to read upload", zap.Error(err))
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > h.maxBytes {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	mtype := mimetype.Detect(data)
	name := uuid.NewString() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(h.dir, name), data, 0o644); err != nil {
		h.logger.Error("Failed to store upload",
			zap.Error(err),
			zap.String("filename", header.Filename))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Stored upload",
		zap.String("filename", header.Filename),
		zap.String("stored", name),
		zap.String("type", mtype.String()),
		zap.Int("size", len(data)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(UploadResponse{
		Path:     h.publicURL + FilesPrefix + name,
		Filename: header.Filename,
		Size:     int64(len(data)),
		Type:     mtype.String(),
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Files serves stored uploads under FilesPrefix.
func (h *Handler) Files() http.Handler {
	return http.StripPrefix(FilesPrefix, http.FileServer(http.Dir(h.dir)))
}

// Routes registers the upload endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/upload", h.HandleUpload)
	mux.Handle(FilesPrefix, h.Files())
}
