package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyPNG renders a PNG that compresses poorly so its base64 payload
// reliably exceeds small test budgets.
func noisyPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x*7 + y*13),
				G: uint8(x * y),
				B: uint8(x ^ y),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestReducer_PassthroughUnderBudget(t *testing.T) {
	r := NewReducerWithLimit(1 << 20)
	item := noisyPNG(t, 16, 16)

	assert.Equal(t, item, r.Reduce(item))
}

func TestReducer_ShrinksOversizedImage(t *testing.T) {
	r := NewReducerWithLimit(1024)
	item := noisyPNG(t, 2048, 64)
	require.Greater(t, len(item), 1024)

	reduced := r.Reduce(item)
	require.NotEqual(t, item, reduced)
	require.True(t, strings.HasPrefix(reduced, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(reduced, "data:image/jpeg;base64,"))
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, decoded.Bounds().Dx(), 1024)
	assert.LessOrEqual(t, decoded.Bounds().Dy(), 1024)
}

func TestReducer_ReencodesOversizedWithinEnvelope(t *testing.T) {
	// Small pixel dimensions but over the byte budget: re-encoded, not scaled.
	r := NewReducerWithLimit(256)
	item := noisyPNG(t, 32, 32)
	require.Greater(t, len(item), 256)

	reduced := r.Reduce(item)
	require.True(t, strings.HasPrefix(reduced, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(reduced, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
}

func TestReducer_UndecodableInputPassesThrough(t *testing.T) {
	r := NewReducerWithLimit(10)
	item := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image"))

	assert.Equal(t, item, r.Reduce(item))
}
