package extract

import (
	"bytes"
	"context"
	"image"
	"mime"
	"regexp"
	"strings"
	"time"

	// image decoders for the supported upload types
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
)

// Engine is the OCR capability: image bytes in, recognized text out.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

var _ model.TextExtractor = (*Adapter)(nil)

// Adapter wraps an OCR engine with input validation, a bounded call
// timeout and output normalization.
type Adapter struct {
	engine   Engine
	allowed  map[string]struct{}
	maxBytes int64
	timeout  time.Duration
	logger   *logger.Logger
}

// NewAdapter creates an Adapter accepting only the given media types and
// sizes up to maxBytes, with engine calls bounded by timeout.
func NewAdapter(engine Engine, allowedTypes []string, maxBytes int64, timeout time.Duration, logger *logger.Logger) *Adapter {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return &Adapter{
		engine:   engine,
		allowed:  allowed,
		maxBytes: maxBytes,
		timeout:  timeout,
		logger:   logger,
	}
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// Extract validates the upload, runs the OCR engine and returns normalized
// text. A successful run that finds no characters returns an empty string.
func (a *Adapter) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", model.NewInvalidInputError("malformed content type %q", contentType)
	}
	if _, ok := a.allowed[mediaType]; !ok {
		return "", model.NewInvalidInputError("unsupported content type %q", mediaType)
	}
	if len(data) == 0 {
		return "", model.NewInvalidInputError("empty upload")
	}
	if int64(len(data)) > a.maxBytes {
		return "", model.NewInvalidInputError("image exceeds maximum size of %d bytes", a.maxBytes)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", model.NewExtractionError("image data could not be decoded")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := a.engine.Recognize(ctx, data)
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", model.NewExtractionError("text recognition did not finish in time")
	case res := <-ch:
		if res.err != nil {
			a.logger.Error("OCR engine failed", "error", res.err)
			return "", model.NewExtractionError("text recognition failed")
		}
		return Normalize(res.text), nil
	}
}

// Normalize collapses whitespace runs to single spaces and trims the ends.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}
