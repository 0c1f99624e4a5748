// Package storage archives raw uploads on the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Namespace   string    `json:"namespace"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the namespace directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the archive operations. A namespace groups files, one per
// fiscal year.
type Storage interface {
	// Upload stores a file and returns its metadata
	Upload(ctx context.Context, namespace, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Download retrieves a file by its ID
	Download(ctx context.Context, namespace string, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// List returns all files in a namespace, newest first
	List(ctx context.Context, namespace string) ([]*FileInfo, error)

	GetInfo(ctx context.Context, namespace string, fileID uuid.UUID) (*FileInfo, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string
}

// New creates the local storage backend.
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
