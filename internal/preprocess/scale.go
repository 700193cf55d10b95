package preprocess

import (
	"image"

	"gocv.io/x/gocv"

	"go.universe.tf/iris/internal/location"
)

// DefaultFinalSize is the length of the longest side of the image the
// locators work on. Circle search is expensive in the number of
// pixels, and nothing is gained from more than this.
const DefaultFinalSize = 250

// Scaling records a resize, so that results found on the small image
// can be carried back to the big one.
type Scaling struct {
	From, To image.Point
}

// Circle maps a circle found on the resized image back to the
// original.
func (s Scaling) Circle(c location.Circle) location.Circle {
	if s.To.X == 0 || s.To.Y == 0 {
		return c
	}
	return c.Scale(float64(s.From.X)/float64(s.To.X), float64(s.From.Y)/float64(s.To.Y))
}

// Scale resizes im so that its longest side is finalSize. Unlike a
// plain shrink, small images are blown up too, so that the locators'
// tuning always sees the same scale. The caller owns the returned
// Mat.
func Scale(im gocv.Mat, finalSize int) (gocv.Mat, Scaling) {
	from := image.Point{im.Cols(), im.Rows()}
	longest := max(from.X, from.Y)
	if longest == 0 || longest == finalSize {
		return im.Clone(), Scaling{From: from, To: from}
	}

	sf := float64(finalSize) / float64(longest)
	to := image.Point{int(float64(from.X) * sf), int(float64(from.Y) * sf)}
	ret := gocv.NewMat()
	gocv.Resize(im, &ret, to, 0, 0, gocv.InterpolationLinear)
	return ret, Scaling{From: from, To: to}
}
