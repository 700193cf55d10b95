package location

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContourSearchFindsDisk(t *testing.T) {
	im := solid(200, 200, 30)
	paintDisk(im, 100, 100, 40, 128)

	cs, err := NewContourSearcher().Search(im, 30, 50)
	require.NoError(t, err)
	require.NotEmpty(t, cs)

	found := false
	for _, c := range cs {
		if math.Hypot(c.X-100, c.Y-100) <= 2 && math.Abs(c.R-40) <= 2 {
			found = true
		}
	}
	assert.True(t, found, "no circle near (100,100,40) in %v", cs)
}

func TestContourSearchRespectsBounds(t *testing.T) {
	im := syntheticEye()
	// A disk hanging off the edge must never come back.
	paintDisk(im, 5, 190, 25, 0)

	bounds := image.Rect(0, 0, im.Width, im.Height)
	for _, rng := range []Range{{10, 30}, {30, 70}, {50, 100}} {
		cs, err := NewContourSearcher().Search(im, rng.Min, rng.Max)
		require.NoError(t, err)
		for _, c := range cs {
			assert.GreaterOrEqual(t, c.R, rng.Min)
			assert.LessOrEqual(t, c.R, rng.Max)
			assert.True(t, c.InsideRect(bounds), "%v sticks out", c)
		}
	}
}

func TestContourSearchEmptyImage(t *testing.T) {
	cs, err := NewContourSearcher().Search(solid(64, 64, 90), 5, 30)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestContourSearchIsStable(t *testing.T) {
	im := syntheticEye()
	a, err := NewContourSearcher().Search(im, 10, 100)
	require.NoError(t, err)
	b, err := NewContourSearcher().Search(im, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
