// Package imagestore maps bill ids to stored receipt images. The core
// never reads or writes image bytes after the initial save; the store
// only answers "where is the image for this bill" for display.
package imagestore

import "context"

// KnownExtensions are the image extensions a receipt upload may carry.
var KnownExtensions = []string{"jpg", "jpeg", "png", "webp"}

// Store persists receipt images keyed by bill id.
type Store interface {
	// Save stores the image for a bill under "<billID>.<ext>".
	Save(ctx context.Context, billID, ext string, data []byte) error

	// Find returns the stored key for a bill ("<billID>.<ext>") and
	// whether an image exists.
	Find(ctx context.Context, billID string) (string, bool, error)

	// Remove deletes the bill's image if present. Removing a missing
	// image is not an error.
	Remove(ctx context.Context, billID string) error

	// RemoveAll deletes every stored image. Idempotent.
	RemoveAll(ctx context.Context) error
}

// ValidExtension reports whether ext is one of the known image extensions.
func ValidExtension(ext string) bool {
	for _, known := range KnownExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
