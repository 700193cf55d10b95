package normalize

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/raster"
)

var (
	pupilColor  = [3]uint8{10, 10, 10}
	irisColor   = [3]uint8{40, 90, 160}
	scleraColor = [3]uint8{230, 230, 230}
)

// eye draws concentric pupil and iris disks on a sclera background.
func eye(w, h int, limbus, pupil location.Circle) *raster.BGR {
	im := raster.NewBGR(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			switch {
			case pupil.Distance(fx, fy) <= pupil.R:
				im.Set(x, y, pupilColor)
			case limbus.Distance(fx, fy) <= limbus.R:
				im.Set(x, y, irisColor)
			default:
				im.Set(x, y, scleraColor)
			}
		}
	}
	return im
}

func TestSize(t *testing.T) {
	for _, r := range []float64{1, 1.4, 2.5, 17.3, 60, 123.7} {
		src := raster.NewBGR(400, 400)
		limbus := location.Circle{X: 200, Y: 200, R: r}
		pupil := location.Circle{X: 200, Y: 200, R: r / 4}
		out, m := Normalize(src, limbus, pupil)

		assert.Equal(t, int(math.Round(2*math.Pi*r)), out.Width, "r=%v", r)
		assert.Equal(t, 2*int(math.Round(r)), out.Height, "r=%v", r)
		w, h := m.Size()
		assert.Equal(t, out.Width, w)
		assert.Equal(t, out.Height, h)
	}
}

func TestMapConsistency(t *testing.T) {
	limbus := location.Circle{X: 100, Y: 95, R: 60}
	pupil := location.Circle{X: 103, Y: 97, R: 18}
	src := eye(200, 200, limbus, pupil)
	out, m := Normalize(src, limbus, pupil)

	// Everything is in bounds, so every cell is mapped.
	assert.Equal(t, out.Width*out.Height, m.Len())

	m.Each(func(p, c image.Point) {
		require.True(t, src.In(c.X, c.Y), "%v -> %v out of bounds", p, c)
		assert.Equal(t, src.At(c.X, c.Y), out.At(p.X, p.Y))

		back, ok := m.Polar(c)
		require.True(t, ok, "no polar entry for %v", c)
		again, ok := m.Cartesian(back)
		require.True(t, ok)
		assert.Equal(t, c, again)
	})
}

func TestOrientation(t *testing.T) {
	limbus := location.Circle{X: 100, Y: 100, R: 50}
	pupil := location.Circle{X: 100, Y: 100, R: 15}
	_, m := Normalize(raster.NewBGR(200, 200), limbus, pupil)

	// Column 0, row 0 is the top of the limbus.
	c, ok := m.Cartesian(image.Point{0, 0})
	require.True(t, ok)
	assert.Equal(t, image.Point{100, 50}, c)

	// The last row is one step short of the pupil boundary.
	_, h := m.Size()
	c, ok = m.Cartesian(image.Point{0, h - 1})
	require.True(t, ok)
	assert.Equal(t, 100, c.X)
	assert.InDelta(t, 85, c.Y, 1)
}

func TestUnwrapsColors(t *testing.T) {
	limbus := location.Circle{X: 100, Y: 100, R: 60}
	pupil := location.Circle{X: 100, Y: 100, R: 20}
	out, _ := Normalize(eye(200, 200, limbus, pupil), limbus, pupil)

	// Row 0 sits on the limbus, and the rows in between on the iris.
	for col := 0; col < out.Width; col += 7 {
		for row := 3; row < out.Height-2; row++ {
			assert.Equal(t, irisColor, out.At(col, row), "(%d,%d)", col, row)
		}
	}
}

func TestHoles(t *testing.T) {
	// The limbus hangs off the left of the image.
	limbus := location.Circle{X: 30, Y: 100, R: 60}
	pupil := location.Circle{X: 30, Y: 100, R: 20}
	src := eye(200, 200, limbus, pupil)
	out, m := Normalize(src, limbus, pupil)

	assert.Less(t, m.Len(), out.Width*out.Height)
	assert.Greater(t, m.Len(), 0)

	holes := 0
	for row := 0; row < out.Height; row++ {
		for col := 0; col < out.Width; col++ {
			if _, ok := m.Cartesian(image.Point{col, row}); !ok {
				holes++
				assert.Equal(t, [3]uint8{}, out.At(col, row))
			}
		}
	}
	assert.Equal(t, out.Width*out.Height-m.Len(), holes)

	_, ok := m.Cartesian(image.Point{-1, 0})
	assert.False(t, ok)
	_, ok = m.Polar(image.Point{199, 199})
	assert.False(t, ok)
}

func TestFreshMapPerCall(t *testing.T) {
	limbus := location.Circle{X: 100, Y: 100, R: 40}
	pupil := location.Circle{X: 100, Y: 100, R: 10}
	src := eye(200, 200, limbus, pupil)
	a, ma := Normalize(src, limbus, pupil)
	b, mb := Normalize(src, limbus, pupil)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, ma, mb)
	assert.NotSame(t, ma, mb)
}
