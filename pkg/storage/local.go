package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) dir(namespace string) string {
	return filepath.Join(s.basePath, sanitizeFilename(namespace))
}

func (s *LocalStorage) metaPath(namespace string, fileID uuid.UUID) string {
	return filepath.Join(s.dir(namespace), ".meta", fileID.String()+".json")
}

// Upload stores a file and returns its metadata
func (s *LocalStorage) Upload(ctx context.Context, namespace, filename, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()

	dir := s.dir(namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create namespace directory: %w", err)
	}

	storedFilename := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filepath.Base(filename)))
	filePath := filepath.Join(dir, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Namespace:   namespace,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        storedFilename,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.saveMetadata(info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

// Download retrieves a file by its ID
func (s *LocalStorage) Download(ctx context.Context, namespace string, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, namespace, fileID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.dir(namespace), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

// List returns all files in a namespace, newest first
func (s *LocalStorage) List(ctx context.Context, namespace string) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.dir(namespace), ".meta")
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return []*FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := s.GetInfo(ctx, namespace, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// GetInfo returns metadata for a file without downloading
func (s *LocalStorage) GetInfo(ctx context.Context, namespace string, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(namespace, fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	metaDir := filepath.Join(s.dir(info.Namespace), ".meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(info.Namespace, info.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
