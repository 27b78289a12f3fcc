package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prperemyshlev/videotube-users/internal/domain"
)

// UploadStager writes multipart files to a local directory before they are sent to the media host
type UploadStager struct {
	dir      string
	maxBytes int64
}

// NewUploadStager creates the staging directory if needed
func NewUploadStager(dir string, maxBytes int64) (*UploadStager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &UploadStager{dir: dir, maxBytes: maxBytes}, nil
}

// Stage saves the file of the given form field. A missing field yields an empty path and no error.
// The returned cleanup removes the staged file and is always safe to call.
func (s *UploadStager) Stage(c *gin.Context, field string) (string, func(), error) {
	noop := func() {}

	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", noop, nil
		}
		return "", noop, domain.Validation(fmt.Sprintf("Invalid %s upload", field))
	}

	if header.Size > s.maxBytes {
		return "", noop, domain.Validation(fmt.Sprintf("%s exceeds the %d byte limit", field, s.maxBytes))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	if err := c.SaveUploadedFile(header, path); err != nil {
		_ = os.Remove(path)
		return "", noop, domain.Internal("Failed to store upload", err)
	}

	return path, func() { _ = os.Remove(path) }, nil
}
