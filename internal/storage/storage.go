// Package storage persists uploaded media objects and derives
// thumbnails for them. Two backends are provided: a local-disk store
// for development and an S3 store for production.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend reads and writes raw objects by key.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

// Media describes a stored upload and, when one could be derived,
// its thumbnail.
type Media struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Key          string    `json:"key"`
	ThumbnailKey string    `json:"thumbnail_key,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// MediaStore uploads media to a backend and derives thumbnails for
// image content.
type MediaStore struct {
	backend    Backend
	thumbWidth int
}

// NewMediaStore wraps a backend. thumbWidth bounds derived thumbnails;
// zero or negative disables derivation.
func NewMediaStore(backend Backend, thumbWidth int) *MediaStore {
	return &MediaStore{backend: backend, thumbWidth: thumbWidth}
}

// Save stores the upload and, for images wider than the configured
// thumbnail width, a scaled-down copy alongside it. A failed thumbnail
// derivation never fails the upload.
func (m *MediaStore) Save(ctx context.Context, projectID, filename string, data []byte) (*Media, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload")
	}

	contentType := detectContentType(data)
	id := uuid.New().String()
	key := fmt.Sprintf("media/%s/%s%s", projectID, id, extensionFor(contentType))

	if err := m.backend.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("storing media: %w", err)
	}

	media := &Media{
		ID:          id,
		ProjectID:   projectID,
		Filename:    sanitizeFilename(filename),
		ContentType: contentType,
		Size:        int64(len(data)),
		Key:         key,
		UploadedAt:  time.Now().UTC(),
	}

	if m.thumbWidth > 0 && strings.HasPrefix(contentType, "image/") {
		thumb, err := makeThumbnail(data, m.thumbWidth)
		if err == nil {
			thumbKey := fmt.Sprintf("media/%s/%s_thumb%s", projectID, id, extensionFor(contentType))
			if err := m.backend.Put(ctx, thumbKey, thumb, contentType); err == nil {
				media.ThumbnailKey = thumbKey
			}
		}
	}

	return media, nil
}

// Open returns the stored object bytes and content type for a key.
func (m *MediaStore) Open(ctx context.Context, key string) ([]byte, string, error) {
	return m.backend.Get(ctx, key)
}

// Remove deletes an object by key.
func (m *MediaStore) Remove(ctx context.Context, key string) error {
	return m.backend.Delete(ctx, key)
}

func detectContentType(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(data) >= 8 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G' {
		return "image/png"
	}
	if len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F' {
		return "image/gif"
	}
	if len(data) >= 12 && data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return "image/webp"
	}
	return "application/octet-stream"
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")
	if len(filename) > 200 {
		ext := filepath.Ext(filename)
		filename = filename[:200-len(ext)] + ext
	}
	return filename
}
