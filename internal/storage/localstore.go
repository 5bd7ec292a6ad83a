// Package storage persists attachment payloads on the local file system.
// The database row is the source of truth for an attachment's existence;
// file deletion is best-effort and never blocks a database state change.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileStore saves and removes attachment payloads.
type FileStore interface {
	// Save writes the content under a collision-proof name keyed by incident
	// and returns the relative storage path recorded on the attachment.
	Save(ctx context.Context, incidentID uuid.UUID, originalName string, content io.Reader) (string, error)
	// Remove deletes the file at the given relative path. Failures are
	// logged, not returned: orphaned files are preferred over blocking a
	// valid database change.
	Remove(relativePath string)
}

// LocalStore stores files under {root}/uploads/incidents/{incidentId}/.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

// NewLocalStore builds a store rooted at the configured upload directory.
func NewLocalStore(root string, logger *zap.Logger) *LocalStore {
	return &LocalStore{root: root, logger: logger}
}

func (s *LocalStore) Save(ctx context.Context, incidentID uuid.UUID, originalName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, "uploads", "incidents", incidentID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	uniqueName := uuid.NewString() + filepath.Ext(originalName)
	fullPath := filepath.Join(dir, uniqueName)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("close file: %w", err)
	}

	// Relative path uses forward slashes regardless of platform; it doubles
	// as the URL suffix for display.
	return path.Join("uploads", "incidents", incidentID.String(), uniqueName), nil
}

func (s *LocalStore) Remove(relativePath string) {
	fullPath := filepath.Join(s.root, filepath.FromSlash(relativePath))
	switch err := os.Remove(fullPath); {
	case err == nil:
		s.logger.Info("deleted attachment file", zap.String("path", fullPath))
	case os.IsNotExist(err):
		s.logger.Debug("attachment file already absent", zap.String("path", fullPath))
	default:
		s.logger.Warn("failed to delete attachment file",
			zap.String("path", fullPath),
			zap.Error(err))
	}
}
