// Package storage defines the blob storage surface used by the catalog
// media coordinator.
package storage

import (
	"context"
	"io"
)

// Blob is a file staged for upload.
type Blob struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	SizeBytes   int64
}

// UploadOptions control placement of the uploaded object.
type UploadOptions struct {
	// Folder prefixes the generated public ID, e.g. "catalog/products".
	Folder string
	// PublicID pins the object name; when empty the provider assigns one.
	PublicID string
}

// UploadResult describes the stored object.
type UploadResult struct {
	PublicID     string
	URL          string
	ResourceType string
	SizeBytes    int64
	Format       string
}

// Provider is the minimal blob store contract. Delete must be
// idempotent: deleting an object that no longer exists is not an error.
type Provider interface {
	Upload(ctx context.Context, blob Blob, opts UploadOptions) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}
