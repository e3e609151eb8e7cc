package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/receiptorhq/receiptor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(config.Config{UploadDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestSaveAndRemove(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Save("123", "lunch receipt.png", []byte("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "123_lunch receipt.png", ref)

	path := filepath.Join(store.dir, ref)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), content)

	store.Remove(ref)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveMissingFileIsSilent(t *testing.T) {
	store := newTestStore(t)
	store.Remove("does-not-exist.pdf")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"special characters stripped", "re*?ceipt!.png", "receipt.png"},
		{"path components dropped before stripping", "../evil/re*?ceipt.png", "receipt.png"},
		{"spaces collapsed", "my   receipt.pdf", "my receipt.pdf"},
		{"empty base falls back", "!!!.jpg", "receipt.jpg"},
		{"long base truncated", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.png", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
