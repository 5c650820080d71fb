package model

import "context"

// TextExtractor turns uploaded image bytes into normalized text.
// A successful run with no recognized characters returns an empty string,
// not an error.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}
