// utils/file.go
package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

const defaultUploadsRoot = "uploads"

// UploadsRoot returns the local directory icons fall back to when R2 is not
// configured. Overridable via UPLOADS_DIR so deployments can point it at a
// mounted volume; main serves it at /uploads either way.
func UploadsRoot() string {
	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		return dir
	}
	return defaultUploadsRoot
}

// EnsureUploadDir creates the uploads root if it doesn't exist
func EnsureUploadDir() error {
	return os.MkdirAll(UploadsRoot(), os.ModePerm)
}

// SaveFile writes the uploaded file under destPath, creating parent
// directories as needed
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}

// GetUploadPath returns the on-disk path for an object key inside the
// uploads root
func GetUploadPath(key string) string {
	return filepath.Join(UploadsRoot(), key)
}
