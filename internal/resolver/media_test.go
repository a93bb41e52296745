package resolver

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servePayload(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMediaOptimizer_PNGStaysPNG(t *testing.T) {
	t.Parallel()

	srv := servePayload(t, encodePNG(t, 64, 64))
	o := NewMediaOptimizer(5 * time.Second)

	got, err := o.Optimize(context.Background(), srv.URL, 1<<20, 75)
	require.NoError(t, err)
	assert.Equal(t, "png", got.Format)

	decoded, format, err := image.Decode(bytes.NewReader(got.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 64, decoded.Bounds().Dx())
}

func TestMediaOptimizer_DownscalesOversizedImages(t *testing.T) {
	t.Parallel()

	srv := servePayload(t, encodePNG(t, 2048, 512))
	o := NewMediaOptimizer(5 * time.Second)

	got, err := o.Optimize(context.Background(), srv.URL, 1<<22, 75)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(got.Data))
	require.NoError(t, err)
	assert.LessOrEqual(t, decoded.Bounds().Dx(), 1024)
	assert.LessOrEqual(t, decoded.Bounds().Dy(), 1024)
	// Aspect ratio survives the fit.
	assert.Equal(t, 1024, decoded.Bounds().Dx())
	assert.Equal(t, 256, decoded.Bounds().Dy())
}

func TestMediaOptimizer_NormalizesToJPEG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32)), nil))
	srv := servePayload(t, buf.Bytes())

	o := NewMediaOptimizer(5 * time.Second)
	got, err := o.Optimize(context.Background(), srv.URL, 1<<20, 60)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", got.Format)
	assert.Equal(t, "image/jpeg", got.ContentType())
	assert.Equal(t, "jpg", got.Ext())
}

func TestMediaOptimizer_GIFPassesThroughUntouched(t *testing.T) {
	t.Parallel()

	palette := color.Palette{color.Black, color.White}
	anim := &gif.GIF{
		Image: []*image.Paletted{
			image.NewPaletted(image.Rect(0, 0, 8, 8), palette),
			image.NewPaletted(image.Rect(0, 0, 8, 8), palette),
		},
		Delay: []int{10, 10},
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	raw := buf.Bytes()
	srv := servePayload(t, raw)

	o := NewMediaOptimizer(5 * time.Second)
	got, err := o.Optimize(context.Background(), srv.URL, 1<<20, 75)
	require.NoError(t, err)

	// Re-encoding would drop frames, so the original bytes are kept.
	assert.Equal(t, "gif", got.Format)
	assert.Equal(t, raw, got.Data)
}

func TestMediaOptimizer_RejectsNonImagePayload(t *testing.T) {
	t.Parallel()

	srv := servePayload(t, []byte("definitely not an image"))
	o := NewMediaOptimizer(5 * time.Second)

	_, err := o.Optimize(context.Background(), srv.URL, 1<<20, 75)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode media")
}

func TestMediaOptimizer_RespectsSizeLimit(t *testing.T) {
	t.Parallel()

	srv := servePayload(t, encodePNG(t, 256, 256))
	o := NewMediaOptimizer(5 * time.Second)

	_, err := o.Optimize(context.Background(), srv.URL, 16, 75)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}
