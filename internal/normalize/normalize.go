// Package normalize unwraps the iris annulus into a rectangle.
//
// This is Daugman's "rubber sheet" model: every column of the output
// is one angle around the pupil, every row one step of the way from
// the limbus (row 0) to the pupil. The iris stretches and shrinks with
// pupil dilation, and this mapping undoes most of that, so two
// pictures of the same eye line up column for column.
package normalize

import (
	"image"
	"math"

	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/raster"
)

// Size returns the dimensions of the unwrapped image for a limbus:
// its diameter tall, and its circumference wide.
func Size(limbus location.Circle) (w, h int) {
	return int(math.Round(2 * math.Pi * limbus.R)), 2 * int(math.Round(limbus.R))
}

// Normalize unwraps the annulus between limbus and pupil in src.
//
// Samples falling outside src are left black, and don't appear in the
// returned map.
func Normalize(src *raster.BGR, limbus, pupil location.Circle) (*raster.BGR, *CoordMap) {
	w, h := Size(limbus)
	out := raster.NewBGR(w, h)
	m := newCoordMap(w, h)

	// Start at 3π/2, which is straight up since image y grows
	// downwards, and go round once. Stepping by index, not by
	// accumulating the angle, guarantees exactly w columns.
	step := 2 * math.Pi / float64(w)
	for col := 0; col < w; col++ {
		theta := 3*math.Pi/2 + float64(col)*step
		cos, sin := math.Cos(theta), math.Sin(theta)

		px, py := pupil.X+pupil.R*cos, pupil.Y+pupil.R*sin
		lx, ly := limbus.X+limbus.R*cos, limbus.Y+limbus.R*sin

		for row := 0; row < h; row++ {
			f := float64(row) / float64(h)
			x := int(math.Round((1-f)*lx + f*px))
			y := int(math.Round((1-f)*ly + f*py))
			if !src.In(x, y) {
				continue
			}
			out.Set(col, row, src.At(x, y))
			m.set(image.Point{col, row}, image.Point{x, y})
		}
	}
	return out, m
}
