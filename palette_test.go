package recolor

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// testImage builds a W x H NRGBA image from a pixel function.
func testImage(w, h int, f func(x, y int) RGB) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := f(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = 255
		}
	}
	return img
}

// richImage has a full-dimensional color cloud: no component is a linear
// function of position.
func richImage(w, h int) *image.NRGBA {
	return testImage(w, h, func(x, y int) RGB {
		return RGB{
			uint8((x*x*31 + y*17) % 251),
			uint8((y*y*23 + x*11) % 241),
			uint8((x*y*29 + x*5 + y*3) % 239),
		}
	})
}

func TestComputePaletteTargetSize(t *testing.T) {
	assert := assert.New(t)

	img := richImage(7, 7)
	palette, err := ComputePalette(img, 4, 4, math.Inf(1))
	assert.NoError(err)
	assert.Len(palette, 4)

	// The minimum size is clamped up to a tetrahedron's 4 vertices.
	palette, err = ComputePalette(img, 0, 4, math.Inf(1))
	assert.NoError(err)
	assert.Len(palette, 4)
}

func TestComputePaletteContainsPixels(t *testing.T) {
	assert := assert.New(t)

	img := richImage(7, 7)
	palette, err := ComputePalette(img, 4, 4, math.Inf(1))
	assert.NoError(err)
	assert.Len(palette, 4)

	// The four colors span a tetrahedron holding every pixel, up to the
	// clamp applied to out-of-range vertices.
	m := mat.NewDense(4, 4, nil)
	for c, col := range palette {
		m.Set(0, c, float64(col.R))
		m.Set(1, c, float64(col.G))
		m.Set(2, c, float64(col.B))
		m.Set(3, c, 1)
	}
	var inv mat.Dense
	err = inv.Inverse(m)
	if err != nil {
		_, ok := err.(mat.Condition)
		assert.True(ok, "palette tetrahedron is singular: %v", err)
	}

	const tol = 0.02
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb := pixelRGB(img, x, y)
			p := mat.NewVecDense(4, []float64{float64(r), float64(g), float64(bb), 1})
			var bc mat.VecDense
			bc.MulVec(&inv, p)
			for k := 0; k < 4; k++ {
				assert.GreaterOrEqual(bc.AtVec(k), -tol,
					"pixel (%d,%d) outside the palette tetrahedron", x, y)
			}
		}
	}
}

func TestComputePaletteSolidColor(t *testing.T) {
	assert := assert.New(t)

	img := testImage(4, 4, func(x, y int) RGB { return RGB{128, 64, 200} })
	palette, err := ComputePalette(img, 4, 4, math.Inf(1))
	assert.NoError(err)
	assert.Len(palette, 4)
	for _, c := range palette {
		assert.Equal(RGB{128, 64, 200}, c)
	}
}

func TestComputePaletteFlatColors(t *testing.T) {
	assert := assert.New(t)

	// All pixels share b=0, so the color cloud is flat; extraction must
	// still work.
	img := testImage(16, 16, func(x, y int) RGB {
		return RGB{uint8(x * 16), uint8(y * 16), 0}
	})
	palette, err := ComputePalette(img, 4, 4, math.Inf(1))
	assert.NoError(err)
	assert.Len(palette, 4)
	for _, c := range palette {
		assert.LessOrEqual(int(c.B), 1)
	}
}

func TestComputePaletteInvalidImage(t *testing.T) {
	assert := assert.New(t)

	_, err := ComputePalette(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 4, 4, math.Inf(1))
	assert.ErrorIs(err, ErrInvalidImage)

	_, err = ComputePalette(nil, 4, 4, math.Inf(1))
	assert.ErrorIs(err, ErrInvalidImage)
}
