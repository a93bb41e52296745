package resolver

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"time"

	// Register codecs for image.Decode.
	_ "image/gif"

	"github.com/disintegration/imaging"

	"github.com/JakeFAU/nft-metadata-parser/internal/parser"
)

// maxDimension caps the long side of re-encoded media; larger inputs
// are downscaled preserving aspect ratio.
const maxDimension = 1024

// MediaOptimizer fetches and re-encodes images and animations for CDN
// hosting.
type MediaOptimizer struct {
	client *http.Client
}

// NewMediaOptimizer builds an optimizer with a bounded-timeout HTTP client.
func NewMediaOptimizer(timeout time.Duration) *MediaOptimizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MediaOptimizer{client: &http.Client{Timeout: timeout}}
}

// Optimize fetches the media at uri (at most maxBytes), decodes it,
// downscales anything larger than maxDimension, and re-encodes jpeg at
// the given quality. GIFs pass through as fetched so animations keep
// their frames.
func (o *MediaOptimizer) Optimize(ctx context.Context, uri string, maxBytes int64, quality int) (parser.MediaResult, error) {
	raw, err := fetchBounded(ctx, o.client, uri, maxBytes)
	if err != nil {
		return parser.MediaResult{}, err
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return parser.MediaResult{}, fmt.Errorf("decode media from %s: %w", uri, err)
	}

	if format == "gif" {
		return parser.MediaResult{Data: raw, Format: "gif"}, nil
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return parser.MediaResult{}, fmt.Errorf("encode png: %w", err)
		}
	default:
		// Everything else is normalized to jpeg.
		format = "jpeg"
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return parser.MediaResult{}, fmt.Errorf("encode jpeg: %w", err)
		}
	}

	return parser.MediaResult{Data: buf.Bytes(), Format: format}, nil
}
