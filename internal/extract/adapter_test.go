package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsnap/textsnap-server/internal/model"
	"github.com/textsnap/textsnap-server/internal/testutil"
)

type stubEngine struct {
	text  string
	err   error
	delay time.Duration
	calls int
}

func (e *stubEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	e.calls++
	if e.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(e.delay):
		}
	}
	return e.text, e.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newTestAdapter(engine Engine) *Adapter {
	return NewAdapter(engine, []string{"image/jpeg", "image/png"}, 1<<20, time.Second, testutil.MakeNoopLogger())
}

func TestAdapter_Extract(t *testing.T) {
	engine := &stubEngine{text: "  INVOICE\n\t 42  "}
	a := newTestAdapter(engine)

	text, err := a.Extract(context.Background(), pngBytes(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE 42", text)
	assert.Equal(t, 1, engine.calls)
}

func TestAdapter_ContentTypeWithParameters(t *testing.T) {
	a := newTestAdapter(&stubEngine{text: "ok"})

	text, err := a.Extract(context.Background(), pngBytes(t), "image/png; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestAdapter_RejectsDisallowedType(t *testing.T) {
	engine := &stubEngine{text: "should not run"}
	a := newTestAdapter(engine)

	_, err := a.Extract(context.Background(), []byte("%PDF-1.4"), "application/pdf")

	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, engine.calls, "disallowed type must be rejected before extraction")
}

func TestAdapter_RejectsMalformedContentType(t *testing.T) {
	a := newTestAdapter(&stubEngine{})

	_, err := a.Extract(context.Background(), pngBytes(t), "not a media type")

	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestAdapter_RejectsOversizedImage(t *testing.T) {
	engine := &stubEngine{}
	a := NewAdapter(engine, []string{"image/png"}, 10, time.Second, testutil.MakeNoopLogger())

	_, err := a.Extract(context.Background(), pngBytes(t), "image/png")

	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, engine.calls)
}

func TestAdapter_RejectsEmptyUpload(t *testing.T) {
	a := newTestAdapter(&stubEngine{})

	_, err := a.Extract(context.Background(), nil, "image/png")

	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestAdapter_CorruptImageFailsExtraction(t *testing.T) {
	engine := &stubEngine{}
	a := newTestAdapter(engine)

	_, err := a.Extract(context.Background(), []byte("not an image"), "image/png")

	var failed *model.ExtractionError
	require.ErrorAs(t, err, &failed)
	assert.Zero(t, engine.calls)
}

func TestAdapter_EngineErrorIsTranslated(t *testing.T) {
	cause := errors.New("tesseract exploded: internal stack detail")
	a := newTestAdapter(&stubEngine{err: cause})

	_, err := a.Extract(context.Background(), pngBytes(t), "image/png")

	var failed *model.ExtractionError
	require.ErrorAs(t, err, &failed)
	assert.NotContains(t, failed.Cause, "stack detail")
}

func TestAdapter_Timeout(t *testing.T) {
	engine := &stubEngine{text: "late", delay: time.Second}
	a := NewAdapter(engine, []string{"image/png"}, 1<<20, 10*time.Millisecond, testutil.MakeNoopLogger())

	_, err := a.Extract(context.Background(), pngBytes(t), "image/png")

	var failed *model.ExtractionError
	require.ErrorAs(t, err, &failed)
}

func TestAdapter_EmptyTextIsSuccess(t *testing.T) {
	a := newTestAdapter(&stubEngine{text: "   \n\t "})

	text, err := a.Extract(context.Background(), pngBytes(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  hello  ", "hello"},
		{"a\n\nb\tc", "a b c"},
		{"INVOICE\r\n42", "INVOICE 42"},
		{"one two", "one two"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}
