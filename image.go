package recolor

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/exp/constraints"
	"golang.org/x/image/bmp"
)

// clamp bounds v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RGB is an 8-bit RGB color, the palette entry type used throughout.
type RGB struct {
	R, G, B uint8
}

// toNRGBA validates the input image and converts it to NRGBA for
// uniform pixel access.
func toNRGBA(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: zero-sized image (%dx%d)", ErrInvalidImage, b.Dx(), b.Dy())
	}
	return imaging.Clone(img), nil
}

// pixelRGB returns the 8-bit color components of the pixel at (x, y).
func pixelRGB(img *image.NRGBA, x, y int) (r, g, b uint8) {
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2]
}

// EncodeImage encodes img to w in the format named by ext (".png",
// ".jpg", ".jpeg" or ".bmp"; anything else falls back to PNG). Used by
// the CLI when writing to a pipe, where no file name carries the format.
func EncodeImage(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return png.Encode(w, img)
	}
}
