// Package imaging normalises uploaded profile photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// DefaultPhotoSize bounds the longest side of a stored profile photo.
const DefaultPhotoSize = 400

// ErrUnsupportedImage is returned when the upload cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported image")

// NormalizePhoto decodes an image, applies EXIF orientation, fits it inside a
// size x size box and re-encodes it as JPEG.
func NormalizePhoto(r io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultPhotoSize
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > size || bounds.Dy() > size {
		img = imaging.Fit(img, size, size, imaging.Lanczos)
	}
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}
