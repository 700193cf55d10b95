package segment

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"go.universe.tf/iris/internal/config"
	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/normalize"
	"go.universe.tf/iris/internal/raster"
)

var (
	limbus = location.Circle{X: 125, Y: 125, R: 75}
	pupil  = location.Circle{X: 125, Y: 125, R: 22}
)

// drawEye paints a gray eye centered at off+(125, 125) into im, with
// a small specular highlight on the iris.
func drawEye(im *raster.BGR, off image.Point) {
	for y := 0; y < 250; y++ {
		for x := 0; x < 250; x++ {
			fx, fy := float64(x), float64(y)
			v := uint8(220)
			switch {
			case pupil.Distance(fx, fy) <= pupil.R:
				v = 20
			case limbus.Distance(fx, fy) <= limbus.R:
				v = 120
			}
			im.Set(off.X+x, off.Y+y, [3]uint8{v, v, v})
		}
	}
	for y := 123; y < 127; y++ {
		for x := 163; x < 167; x++ {
			im.Set(off.X+x, off.Y+y, [3]uint8{255, 255, 255})
		}
	}
}

func eyeMat(t *testing.T) gocv.Mat {
	t.Helper()
	im := raster.NewBGR(250, 250)
	drawEye(im, image.Point{})
	m, err := im.Mat()
	require.NoError(t, err)
	return m
}

func assertNear(t *testing.T, want, got location.Circle, tol float64) {
	t.Helper()
	assert.LessOrEqual(t, math.Hypot(want.X-got.X, want.Y-got.Y), tol, "center of %v, want %v", got, want)
	assert.InDelta(t, want.R, got.R, tol, "radius of %v, want %v", got, want)
}

type fixedDetector image.Rectangle

func (d fixedDetector) Detect(gocv.Mat) []image.Rectangle {
	return []image.Rectangle{image.Rectangle(d)}
}

func TestSegmentSyntheticEye(t *testing.T) {
	src := eyeMat(t)
	defer src.Close()

	res, err := NewIsis(config.Default()).Segment(src)
	require.NoError(t, err)
	require.True(t, res.Iris.Valid())
	assertNear(t, limbus, res.Iris.Limbus, 3)
	assertNear(t, pupil, res.Iris.Pupil, 3)
	assert.Equal(t, image.Rect(0, 0, 250, 250), res.Crop)
	assert.False(t, res.Detected)

	n := res.Normalized
	w, h := normalize.Size(res.Iris.Limbus)
	assert.Equal(t, w, n.Normalized.Width)
	assert.Equal(t, h, n.Normalized.Height)
	assert.Equal(t, w, n.NormalizedMask.Width)
	assert.Equal(t, h, n.NormalizedMask.Height)
	assert.Equal(t, 250, n.Eye.Width)
	assert.Equal(t, 250, n.EyeMask.Width)
}

func TestSegmentWithDetector(t *testing.T) {
	im := raster.NewBGR(400, 300)
	for i := range im.Pix {
		im.Pix[i] = 220
	}
	drawEye(im, image.Point{100, 25})
	src, err := im.Mat()
	require.NoError(t, err)
	defer src.Close()

	roi := image.Rect(100, 25, 350, 275)
	res, err := NewIsis(config.Default(), WithDetector(fixedDetector(roi))).Segment(src)
	require.NoError(t, err)
	assert.Equal(t, roi, res.Crop)
	assert.True(t, res.Detected)
	assertNear(t, limbus, res.Iris.Limbus, 3)
}

func TestSegmentIsDeterministic(t *testing.T) {
	src := eyeMat(t)
	defer src.Close()
	s := NewIsis(config.Default())

	a, errA := s.Segment(src)
	b, errB := s.Segment(src)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestSegmentFailures(t *testing.T) {
	s := NewIsis(config.Default())

	_, err := s.Segment(gocv.NewMat())
	assert.True(t, errors.Is(err, ErrSegmentation), "got %v", err)

	black, err := raster.NewBGR(100, 100).Mat()
	require.NoError(t, err)
	defer black.Close()
	res, err := s.Segment(black)
	assert.True(t, errors.Is(err, ErrSegmentation), "got %v", err)
	assert.True(t, errors.Is(err, location.ErrNotFound), "got %v", err)
	assert.False(t, res.Iris.Valid())
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &location.ContourLocator{}, s.locator)
	assert.True(t, s.reflections)

	cfg.Strategy = config.StrategyHough
	cfg.Hough.Seed = 7
	s, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &location.HoughLocator{}, s.locator)
	assert.Equal(t, int64(7), s.locator.(*location.HoughLocator).Pupil.Seed)
	assert.False(t, s.reflections)

	on := true
	cfg.Preprocess.Reflections = &on
	s, err = New(cfg)
	require.NoError(t, err)
	assert.True(t, s.reflections)

	cfg.Strategy = "magic"
	_, err = New(cfg)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestNormalizeIris(t *testing.T) {
	eye := raster.NewBGR(250, 250)
	drawEye(eye, image.Point{})
	iris := location.Iris{Pupil: pupil, Limbus: limbus}

	n, err := NormalizeIris(eye, nil, iris)
	require.NoError(t, err)

	_, m := normalize.Normalize(eye, limbus, pupil)
	valid := 0
	for row := 0; row < n.NormalizedMask.Height; row++ {
		for col := 0; col < n.NormalizedMask.Width; col++ {
			if n.NormalizedMask.At(col, row) == 0 {
				continue
			}
			valid++
			c, ok := m.Cartesian(image.Point{col, row})
			require.True(t, ok)
			fx, fy := float64(c.X), float64(c.Y)
			assert.True(t, limbus.Contains(fx, fy))
			assert.False(t, pupil.Contains(fx, fy))
			assert.Equal(t, uint8(255), n.EyeMask.At(c.X, c.Y))
		}
	}
	assert.Greater(t, valid, 0)
}

func TestNormalizeIrisInvalid(t *testing.T) {
	_, err := NormalizeIris(raster.NewBGR(10, 10), nil, location.Iris{})
	assert.True(t, errors.Is(err, location.ErrNotFound))

	iris := location.Iris{Pupil: pupil, Limbus: limbus}
	_, err = NormalizeIris(raster.NewBGR(250, 250), raster.NewGray(100, 100), iris)
	assert.Error(t, err)
}

func TestNormalizeIrisTracesEyelidsOnLids(t *testing.T) {
	eye := raster.NewBGR(250, 250)
	drawEye(eye, image.Point{})
	clean := eye.Gray()
	// A big highlight on the iris, above the pupil. Its bottom edge
	// is bright over dark, same as an eyelid.
	for y := 66; y < 76; y++ {
		for x := 140; x < 154; x++ {
			eye.Set(x, y, [3]uint8{255, 255, 255})
		}
	}
	iris := location.Iris{Pupil: pupil, Limbus: limbus}

	raw, err := NormalizeIris(eye, nil, iris)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), raw.EyeMask.At(146, 62), "highlight taken for an eyelid")

	painted, err := NormalizeIris(eye, clean, iris)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), painted.EyeMask.At(146, 62))
	// The eyelid still follows the real limbus edge above.
	assert.Equal(t, uint8(0), painted.EyeMask.At(146, 55))
}

func TestSegmentHough(t *testing.T) {
	src := eyeMat(t)
	defer src.Close()

	res, err := NewHough(config.Default()).Segment(src)
	require.NoError(t, err)
	require.True(t, res.Iris.Valid())
	assertNear(t, limbus, res.Iris.Limbus, 4)
	assertNear(t, pupil, res.Iris.Pupil, 4)
	assert.Equal(t, 250, res.Normalized.EyeMask.Width)
}
