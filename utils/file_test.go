package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadsRootDefault(t *testing.T) {
	t.Setenv("UPLOADS_DIR", "")
	assert.Equal(t, "uploads", UploadsRoot())
	assert.Equal(t, filepath.Join("uploads", "icons", "a.png"), GetUploadPath("icons/a.png"))
}

func TestUploadsRootOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UPLOADS_DIR", dir)
	assert.Equal(t, dir, UploadsRoot())
	assert.Equal(t, filepath.Join(dir, "a.png"), GetUploadPath("a.png"))
}
