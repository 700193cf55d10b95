package mask

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/normalize"
	"go.universe.tf/iris/internal/raster"
)

// ErrUnmappedCell is returned when an occluded polar cell has no
// source pixel to project back onto.
var ErrUnmappedCell = errors.New("mask: occluded polar cell has no cartesian source")

// Reflections marks specular highlights in the blue channel of an
// unwrapped iris: pixels noticeably brighter than their immediate
// neighbourhood. Reflections are 255, the rest 0.
func Reflections(blue *raster.Gray) (*raster.Gray, error) {
	src, err := blue.Mat()
	if err != nil {
		return nil, fmt.Errorf("reflections: %w", err)
	}
	defer src.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.AdaptiveThreshold(src, &out, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 3, -10)
	return raster.GrayFromMat(out)
}

// Occlusion builds the cartesian occlusion mask for a w x h eye
// image. Occluded pixels are 255.
//
// lower and refl live in polar space, and get projected back through
// m. The upper eyelid is already in cartesian space: everything in
// the limbus above it is hidden.
func Occlusion(w, h int, m *normalize.CoordMap, lower, refl *raster.Gray, lid Eyelid, limbus location.Circle) (*raster.Gray, error) {
	out := raster.NewGray(w, h)

	for row := 0; row < lower.Height; row++ {
		for col := 0; col < lower.Width; col++ {
			if lower.At(col, row) != 0 && refl.At(col, row) == 0 {
				continue
			}
			c, ok := m.Cartesian(image.Point{col, row})
			if !ok {
				return nil, fmt.Errorf("%w: (%d,%d)", ErrUnmappedCell, col, row)
			}
			if out.In(c.X, c.Y) {
				out.Set(c.X, c.Y, 255)
			}
		}
	}

	for x := 0; x < w; x++ {
		edge := min(lid.RowAt(x), h)
		for y := 0; y < edge; y++ {
			if limbus.Contains(float64(x), float64(y)) {
				out.Set(x, y, 255)
			}
		}
	}
	return out, nil
}

// Iris returns the cartesian iris mask for a w x h eye image: 255
// between the pupil and the limbus, 0 in the pupil, outside the
// limbus, and wherever occlusion is set.
//
// The limbus is pulled in by a pixel, so the mask never touches
// sclera.
func Iris(w, h int, limbus, pupil location.Circle, occlusion *raster.Gray) *raster.Gray {
	out := raster.NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			if limbus.Distance(fx, fy) > limbus.R-1 || pupil.Distance(fx, fy) <= pupil.R {
				continue
			}
			if occlusion != nil && occlusion.At(x, y) != 0 {
				continue
			}
			out.Set(x, y, 255)
		}
	}
	return out
}

// Normalized carries the cartesian iris mask over to the polar grid
// of m.
//
// Polar cells with no source pixel (the sample fell off the image)
// come out as 0: nothing is known about them, so they are treated as
// occluded.
func Normalized(iris *raster.Gray, m *normalize.CoordMap) *raster.Gray {
	w, h := m.Size()
	out := raster.NewGray(w, h)
	m.Each(func(p, c image.Point) {
		if iris.In(c.X, c.Y) && iris.At(c.X, c.Y) == 255 {
			out.Set(p.X, p.Y, 255)
		}
	})
	return out
}
