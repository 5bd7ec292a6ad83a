package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSaveWritesUnderIncidentDirectory(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, zap.NewNop())
	incidentID := uuid.New()

	relPath, err := store.Save(context.Background(), incidentID, "report.pdf", strings.NewReader("content"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(relPath, "uploads/incidents/"+incidentID.String()+"/"))
	assert.True(t, strings.HasSuffix(relPath, ".pdf"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store := NewLocalStore(t.TempDir(), zap.NewNop())
	incidentID := uuid.New()
	ctx := context.Background()

	first, err := store.Save(ctx, incidentID, "same.png", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Save(ctx, incidentID, "same.png", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRemoveDeletesFile(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, zap.NewNop())
	incidentID := uuid.New()

	relPath, err := store.Save(context.Background(), incidentID, "scan.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	store.Remove(relPath)
	_, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveMissingFileIsQuiet(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := NewLocalStore(t.TempDir(), zap.New(core))

	// Must not panic or error; deletion is best-effort. A file that was never
	// there must not be reported as deleted.
	store.Remove("uploads/incidents/nope/gone.pdf")
	assert.Empty(t, logs.FilterMessage("deleted attachment file").All())
}

func TestRemoveLogsDeletionOnlyWhenFileExisted(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := NewLocalStore(t.TempDir(), zap.New(core))
	incidentID := uuid.New()

	relPath, err := store.Save(context.Background(), incidentID, "scan.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	store.Remove(relPath)
	store.Remove(relPath)
	assert.Len(t, logs.FilterMessage("deleted attachment file").All(), 1)
}
