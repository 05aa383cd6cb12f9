package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhotoFitsAndEncodesJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1200, 600))
	for x := 0; x < 1200; x++ {
		src.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, src))

	out, err := NormalizePhoto(buf, 400)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 400, cfg.Width)
	require.Equal(t, 200, cfg.Height)
}

func TestNormalizePhotoKeepsSmallImages(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, image.NewGray(image.Rect(0, 0, 120, 160))))

	out, err := NormalizePhoto(buf, 0)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 120, cfg.Width)
	require.Equal(t, 160, cfg.Height)
}

func TestNormalizePhotoRejectsNonImage(t *testing.T) {
	_, err := NormalizePhoto(strings.NewReader("%PDF-1.4"), 400)
	require.ErrorIs(t, err, ErrUnsupportedImage)
}
