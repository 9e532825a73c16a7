// Package media wraps the external media host the app stores uploads in.
package media

import (
	"context"
	"io"
)

// UploadResult is the subset of the host's response the app persists.
type UploadResult struct {
	SecureURL    string
	PublicID     string
	ResourceType string
	Bytes        int
}

// Uploader stores and deletes remotely hosted assets. Handlers depend on
// this interface so tests can swap in a fake.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, folder, publicID string) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}
