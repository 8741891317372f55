package recolor

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageWeightsRows(t *testing.T) {
	assert := assert.New(t)

	img := richImage(6, 6)
	weights, err := NewImageWeights(img)
	assert.NoError(err)
	assert.Equal(6, weights.Width())
	assert.Equal(6, weights.Height())

	rows := weights.width * weights.height
	sums := make([]float64, rows)
	nonZeros := make([]int, rows)
	weights.weights.DoNonZero(func(i, j int, v float64) {
		sums[i] += v
		nonZeros[i]++
		// Barycentric weights are non-negative up to the searcher's
		// tolerance.
		assert.GreaterOrEqual(v, -1e-6)
		assert.LessOrEqual(v, 1+1e-6)
	})
	for i := 0; i < rows; i++ {
		assert.InDelta(1.0, sums[i], 1e-6, "row %d does not sum to 1", i)
		assert.LessOrEqual(nonZeros[i], 6, "row %d has too many entries", i)
	}
}

func TestImageWeightsVertexOrder(t *testing.T) {
	assert := assert.New(t)

	img := richImage(6, 6)
	weights, err := NewImageWeights(img)
	assert.NoError(err)

	_, cols := weights.weights.Dims()
	assert.Equal(len(weights.chRGBVertices), cols)
	for _, p := range weights.chRGBVertices {
		for _, c := range p {
			assert.GreaterOrEqual(c, -1e-3)
			assert.LessOrEqual(c, 255+1e-3)
		}
	}
}

func TestImageWeightsInvalidImage(t *testing.T) {
	assert := assert.New(t)

	_, err := NewImageWeights(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(err, ErrInvalidImage)
}
