// Package tesseract provides the production OCR engine backed by the
// Tesseract C library via gosseract.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text using a fresh gosseract client per call, so it is
// safe for concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// NewEngine constructs a Tesseract-backed OCR engine with optional
// language hints (defaults to Tesseract's own default when empty).
func NewEngine(languages ...string) *Engine {
	return &Engine{
		clientFactory: gosseract.NewClient,
		languages:     append([]string(nil), languages...),
	}
}

// Recognize performs OCR on a single image.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("failed to set languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}

	return text, nil
}
