// Package storage provides durable storage for recipe images. Files live under
// the recipe-images namespace; the returned path is what gets persisted on the
// recipe row, and URL derives the public address clients load the image from.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Namespace is the key prefix for stored recipe images.
const Namespace = "recipe-images"

// ImageStore stores and removes image files.
type ImageStore interface {
	// Save writes the image and returns its storage path.
	Save(ctx context.Context, filename, contentType string, data []byte) (string, error)
	// Delete removes a previously stored image.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for a storage path.
	URL(path string) string
}

// objectKey builds a unique key under the recipe-images namespace, keeping the
// original file extension.
func objectKey(filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("%s/%s%s", Namespace, uuid.New().String(), ext)
}
