// Package tesseract implements ocr.Engine using the gosseract client.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"splitbill/internal/ocr"
)

var _ ocr.Engine = (*Engine)(nil)

// Config holds explicit construction parameters for the engine. The
// tessdata location is passed here rather than read from process-wide
// state so two engines with different trained data can coexist.
type Config struct {
	// Languages lists the trained data sets to load, e.g. "ind", "eng".
	Languages []string

	// PageSegMode is the Tesseract page segmentation mode. Receipts are
	// a single uniform block of text, which is mode 6.
	PageSegMode int

	// TessdataPrefix optionally overrides the trained data directory.
	TessdataPrefix string
}

// Engine recognizes receipt images with a local Tesseract installation.
type Engine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed OCR engine. Zero-value config fields
// fall back to Indonesian+English language data and page segmentation
// mode 6.
func New(cfg Config) *Engine {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"ind", "eng"}
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = int(gosseract.PSM_SINGLE_BLOCK)
	}
	return &Engine{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single receipt image and returns the raw
// multi-line text.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if e.cfg.TessdataPrefix != "" {
		c.TessdataPrefix = e.cfg.TessdataPrefix
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.cfg.Languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PageSegMode)); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
