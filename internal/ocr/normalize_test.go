package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func sampleImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 200, B: 30, A: 255})
		}
	}
	return img
}

func TestNormalizeFormats(t *testing.T) {
	src := sampleImage(40, 20)

	var pngBuf, jpegBuf, bmpBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	require.NoError(t, jpeg.Encode(&jpegBuf, src, nil))
	require.NoError(t, bmp.Encode(&bmpBuf, src))

	for name, data := range map[string][]byte{
		"png":  pngBuf.Bytes(),
		"jpeg": jpegBuf.Bytes(),
		"bmp":  bmpBuf.Bytes(),
	} {
		t.Run(name, func(t *testing.T) {
			out, err := Normalize(data)
			require.NoError(t, err)

			decoded, format, err := image.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.IsType(t, &image.Gray{}, decoded)
			// narrow scans are upscaled
			assert.Equal(t, 80, decoded.Bounds().Dx())
			assert.Equal(t, 40, decoded.Bounds().Dy())
		})
	}
}

func TestNormalizeKeepsWideImages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage(minOCRWidth, 4)))

	out, err := Normalize(buf.Bytes())
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, minOCRWidth, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
