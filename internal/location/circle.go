package location

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrNotFound is returned by the locators when no candidate circle
// survived filtering.
var ErrNotFound = errors.New("location: no circle found")

// Circle is a circle in image coordinates. X is the column, Y the
// row, same as image.Point.
type Circle struct {
	X, Y float64
	R    float64
}

func (c Circle) String() string {
	return fmt.Sprintf("(%.1f,%.1f,%.1f)", c.X, c.Y, c.R)
}

// Valid reports whether c is a real circle.
func (c Circle) Valid() bool {
	for _, v := range []float64{c.X, c.Y, c.R} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.R > 0
}

// Distance returns the distance from c's center to (x, y).
func (c Circle) Distance(x, y float64) float64 {
	return math.Hypot(x-c.X, y-c.Y)
}

// Contains reports whether (x, y) is strictly inside c.
func (c Circle) Contains(x, y float64) bool {
	return c.Distance(x, y) < c.R
}

// InsideRect reports whether the whole of c fits in r. The top-left
// edge is exclusive, the bottom-right edge inclusive.
func (c Circle) InsideRect(r image.Rectangle) bool {
	return c.X-c.R > float64(r.Min.X) &&
		c.Y-c.R > float64(r.Min.Y) &&
		c.X+c.R <= float64(r.Max.X) &&
		c.Y+c.R <= float64(r.Max.Y)
}

// Bounds returns c's bounding box, rounded outwards to whole pixels.
func (c Circle) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(c.X-c.R)),
		int(math.Floor(c.Y-c.R)),
		int(math.Ceil(c.X+c.R)),
		int(math.Ceil(c.Y+c.R)),
	)
}

// Translate returns c moved by (dx, dy).
func (c Circle) Translate(dx, dy float64) Circle {
	return Circle{X: c.X + dx, Y: c.Y + dy, R: c.R}
}

// Scale returns c with its coordinates multiplied by (sx, sy). The
// radius follows the horizontal factor.
func (c Circle) Scale(sx, sy float64) Circle {
	return Circle{X: c.X * sx, Y: c.Y * sy, R: c.R * sx}
}

// Iris is the pair of circles bounding the iris.
type Iris struct {
	Pupil  Circle
	Limbus Circle
}

func (i Iris) String() string {
	return fmt.Sprintf("pupil=%v limbus=%v", i.Pupil, i.Limbus)
}

// Valid reports whether both circles are valid and the pupil sits
// inside the limbus.
func (i Iris) Valid() bool {
	return i.Pupil.Valid() &&
		i.Limbus.Valid() &&
		i.Pupil.R < i.Limbus.R &&
		i.Limbus.Contains(i.Pupil.X, i.Pupil.Y)
}

// ScoredCircle is a candidate paired with its score. Higher is better.
type ScoredCircle struct {
	Circle
	Score float64
}

// best folds cs into the highest scoring candidate. Ties keep the
// earliest one.
func best(cs []ScoredCircle) (ScoredCircle, bool) {
	if len(cs) == 0 {
		return ScoredCircle{}, false
	}
	ret := cs[0]
	for _, c := range cs[1:] {
		if c.Score > ret.Score {
			ret = c
		}
	}
	return ret, true
}
