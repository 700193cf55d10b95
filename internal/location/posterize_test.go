package location

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.universe.tf/iris/internal/raster"
)

// naivePosterize recomputes the window histogram for every pixel.
func naivePosterize(src *raster.Gray, k int) *raster.Gray {
	out := raster.NewGray(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			var counts [256]int
			for yy := max(y-k, 0); yy <= min(y+k, src.Height-1); yy++ {
				for xx := max(x-k, 0); xx <= min(x+k, src.Width-1); xx++ {
					counts[src.At(xx, yy)]++
				}
			}
			top := 0
			for v, n := range counts {
				if n > counts[top] {
					top = v
				}
			}
			out.Set(x, y, uint8(top))
		}
	}
	return out
}

func TestPosterizeUniform(t *testing.T) {
	im := solid(17, 9, 77)
	assert.Equal(t, im.Pix, Posterize(im, 3).Pix)
}

func TestPosterizeZeroWindowCopies(t *testing.T) {
	im := syntheticEye()
	out := Posterize(im, 0)
	assert.Equal(t, im.Pix, out.Pix)
	out.Set(0, 0, 1)
	assert.NotEqual(t, im.At(0, 0), out.At(0, 0))
}

func TestPosterizeRemovesSpecks(t *testing.T) {
	im := solid(20, 20, 0)
	im.Set(10, 10, 255)
	im.Set(3, 15, 128)
	out := Posterize(im, 1)
	assert.Equal(t, solid(20, 20, 0).Pix, out.Pix)
}

func TestPosterizeKeepsStraightEdges(t *testing.T) {
	im := solid(20, 12, 200)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < 10; x++ {
			im.Set(x, y, 50)
		}
	}
	assert.Equal(t, im.Pix, Posterize(im, 2).Pix)
}

func TestPosterizeMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	// A small palette, so that ties are common.
	palette := []uint8{10, 20, 30, 200}
	im := raster.NewGray(31, 23)
	for i := range im.Pix {
		im.Pix[i] = palette[rng.Intn(len(palette))]
	}
	for k := 1; k <= 4; k++ {
		assert.Equal(t, naivePosterize(im, k).Pix, Posterize(im, k).Pix, "k=%d", k)
	}
}
