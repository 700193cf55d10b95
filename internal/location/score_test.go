package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomogeneity(t *testing.T) {
	im := syntheticEye()

	assert.Equal(t, 1.0, Homogeneity(im, Circle{X: 100, Y: 100, R: 20}))

	// The limbus disk holds the pupil too, so it's mostly, but not
	// entirely, one color.
	h := Homogeneity(im, Circle{X: 100, Y: 100, R: 60})
	assert.Greater(t, h, 0.8)
	assert.Less(t, h, 0.95)

	assert.Equal(t, 0.0, Homogeneity(im, Circle{X: -50, Y: -50, R: 10}))
}

func TestSeparability(t *testing.T) {
	im := syntheticEye()

	// Right on the limbus: iris (120) inside, sclera (220) outside,
	// all the way round.
	assert.InDelta(t, 100, Separability(im, Circle{X: 100, Y: 100, R: 60}), 1e-9)

	// In the middle of the iris, both samples see the same thing.
	assert.Equal(t, 0.0, Separability(im, Circle{X: 100, Y: 100, R: 40}))

	// Off the image entirely: the samples clamp to the border.
	assert.Equal(t, 0.0, Separability(im, Circle{X: -100, Y: -100, R: 10}))
}

func TestScoreRanksTrueBoundaryFirst(t *testing.T) {
	im := syntheticEye()
	limbus := Score(im, Circle{X: 100, Y: 100, R: 60})
	assert.Greater(t, limbus, Score(im, Circle{X: 100, Y: 100, R: 50}))
	assert.Greater(t, limbus, Score(im, Circle{X: 90, Y: 100, R: 60}))
}

func TestMeanEmptyRegion(t *testing.T) {
	im := syntheticEye()

	// Centered between pixels with a tiny radius: no pixel is
	// strictly inside.
	_, ok := Mean(im, Circle{X: 10.5, Y: 10.5, R: 0.5})
	assert.False(t, ok)

	_, ok = Mean(im, Circle{X: 500, Y: 500, R: 10})
	assert.False(t, ok)

	// Exactly one pixel inside.
	m, ok := Mean(im, Circle{X: 10, Y: 10, R: 0.5})
	require.True(t, ok)
	assert.Equal(t, 220.0, m)
}

func TestMean(t *testing.T) {
	im := syntheticEye()
	m, ok := Mean(im, Circle{X: 100, Y: 100, R: 20})
	require.True(t, ok)
	assert.Equal(t, 20.0, m)

	m, ok = Mean(im, Circle{X: 100, Y: 100, R: 60})
	require.True(t, ok)
	assert.Greater(t, m, 20.0)
	assert.Less(t, m, 120.0)
}
