package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitDownscalesKeepingAspect(t *testing.T) {
	p := NewProcessor(100)
	out, err := p.Fit(pngBytes(t, 400, 200))
	require.NoError(t, err)

	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
	assert.Equal(t, "image/png", out.MIMEType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
}

func TestFitPassesSmallImagesThrough(t *testing.T) {
	data := pngBytes(t, 64, 64)
	out, err := NewProcessor(1024).Fit(data)
	require.NoError(t, err)
	assert.Equal(t, data, out.Data)
	assert.Equal(t, 64, out.Width)
}

func TestFitRejectsGarbage(t *testing.T) {
	_, err := NewProcessor(100).Fit([]byte("not an image"))
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".png", Extension("image/png"))
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
	assert.Equal(t, ".jpg", Extension(""))
}
