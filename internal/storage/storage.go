// Package storage persists uploaded vlog images and hands back the location
// the frontend should load them from.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageStore saves an image under name and returns its public location.
// Delete takes a location previously returned by Save; deleting an image
// that is already gone is not an error.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// allowedExtensions lists the image types accepted on upload.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// AllowedExtension reports whether filename has an accepted image extension.
func AllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// NewObjectName derives a collision-free object name from the client's
// filename, keeping only its (lower-cased) extension.
func NewObjectName(original string) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("storage: unsupported image type %q", ext)
	}
	return uuid.NewString() + ext, nil
}
