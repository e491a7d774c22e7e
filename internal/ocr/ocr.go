// Package ocr defines the abstraction for plugging OCR engines into the
// receipt scanning pipeline. The interface is intentionally small and
// transport-agnostic; only the recognized text is consumed downstream, so
// engines can be backed by native libraries or remote services without
// leaking provider-specific concerns into callers.
package ocr

import "context"

// Engine is the OCR provider contract: one encoded image in, the
// recognized plain text out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}
