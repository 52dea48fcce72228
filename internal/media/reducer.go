package media

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/genstudio/jobtrack/pkg/log"
)

const (
	// Longest side of a reduced image, in pixels.
	maxDimension = 1024

	jpegQuality = 80

	// DefaultMaxEncodedBytes is the transport budget a single embedded
	// media item may occupy. Items at or below it pass through untouched.
	DefaultMaxEncodedBytes = 2 << 20

	dataURLPrefix = "data:image/jpeg;base64,"
)

// Reducer re-encodes oversized embedded images into a bounded envelope so
// request bodies stay under the gateway's size ceiling. Reduction is lossy.
type Reducer struct {
	maxEncodedBytes int
}

func NewReducer() *Reducer {
	return NewReducerWithLimit(DefaultMaxEncodedBytes)
}

func NewReducerWithLimit(maxEncodedBytes int) *Reducer {
	if maxEncodedBytes <= 0 {
		maxEncodedBytes = DefaultMaxEncodedBytes
	}
	return &Reducer{maxEncodedBytes: maxEncodedBytes}
}

// Reduce returns item unchanged when it fits the budget, otherwise decodes
// it (base64 or data URL), scales the longest side to the pixel envelope
// and re-encodes as a JPEG data URL. Inputs that cannot be decoded are
// returned unchanged; the gateway owns final validation.
func (r *Reducer) Reduce(item string) string {
	if len(item) <= r.maxEncodedBytes {
		return item
	}

	raw, err := decodePayload(item)
	if err != nil {
		log.Warn("Cannot decode oversized media item, sending as-is: %v", err)
		return item
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Warn("Cannot decode oversized media item as image, sending as-is: %v", err)
		return item
	}

	dst := scaleToFit(src, maxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Warn("Cannot re-encode media item, sending as-is: %v", err)
		return item
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// decodePayload strips an optional "data:...;base64," prefix and decodes
// the remaining base64 payload.
func decodePayload(item string) ([]byte, error) {
	payload := item
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(payload)
	}
	return raw, nil
}

func scaleToFit(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		// Already within the pixel envelope; only re-encoding shrinks it.
		return src
	}

	longest := w
	if h > longest {
		longest = h
	}
	scale := float64(maxDim) / float64(longest)
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
