package recolor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNRGBA(t *testing.T) {
	assert := assert.New(t)

	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{10, 20, 30, 255})
	img, err := toNRGBA(src)
	assert.NoError(err)
	r, g, b := pixelRGB(img, 1, 1)
	assert.Equal([3]uint8{10, 20, 30}, [3]uint8{r, g, b})

	_, err = toNRGBA(nil)
	assert.ErrorIs(err, ErrInvalidImage)
	_, err = toNRGBA(image.NewNRGBA(image.Rect(0, 0, 4, 0)))
	assert.ErrorIs(err, ErrInvalidImage)
}

func TestEncodeImage(t *testing.T) {
	assert := assert.New(t)

	img := testImage(4, 4, func(x, y int) RGB {
		return RGB{uint8(x * 60), uint8(y * 60), 128}
	})

	var buf bytes.Buffer
	assert.NoError(EncodeImage(&buf, img, ".png"))
	decoded, err := png.Decode(&buf)
	assert.NoError(err)
	assert.Equal(img.Bounds(), decoded.Bounds())

	buf.Reset()
	assert.NoError(EncodeImage(&buf, img, ".bmp"))
	assert.NotZero(buf.Len())

	buf.Reset()
	assert.NoError(EncodeImage(&buf, img, ".jpg"))
	assert.NotZero(buf.Len())
}
