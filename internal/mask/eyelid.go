// Package mask works out which parts of the iris are hidden by
// eyelids, eyelashes and reflections.
package mask

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/raster"
)

// Direction is the kind of horizontal edge a gradient kernel responds
// to.
type Direction int

const (
	// Up responds to bright-above-dark edges: the upper eyelid over
	// the iris.
	Up Direction = iota
	// Down responds to dark-above-bright edges: the iris over the
	// lower eyelid.
	Down
)

const (
	lashBlur     = 11
	kernelRows   = 10
	kernelCols   = 5
	eyelidMargin = 1.5
)

// kernel builds the 10x5 eyelid edge detector: four rows of +1, two
// rows of 0, four rows of -1 (flipped for Down).
func kernel(dir Direction) gocv.Mat {
	k := gocv.NewMatWithSize(kernelRows, kernelCols, gocv.MatTypeCV32F)
	for row := 0; row < kernelRows; row++ {
		var v float32
		switch {
		case row < 4:
			v = 1
		case row >= 6:
			v = -1
		}
		if dir == Down {
			v = -v
		}
		for col := 0; col < kernelCols; col++ {
			k.SetFloatAt(row, col, v)
		}
	}
	return k
}

// Gradient highlights eyelid edges in an eye image.
//
// Eyelashes are a forest of thin dark lines right where the eyelid
// edge is. A big median blur wipes them out but keeps the eyelid
// itself, then the kernel picks out long horizontal edges. Negative
// responses saturate to zero.
func Gradient(gray *raster.Gray, dir Direction) (*raster.Gray, error) {
	src, err := gray.Mat()
	if err != nil {
		return nil, fmt.Errorf("eyelid gradient: %w", err)
	}
	defer src.Close()

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.MedianBlur(src, &smooth, lashBlur)

	k := kernel(dir)
	defer k.Close()
	grad := gocv.NewMat()
	defer grad.Close()
	gocv.Filter2D(smooth, &grad, -1, k, image.Point{-1, -1}, 0, gocv.BorderDefault)

	return raster.GrayFromMat(grad)
}

// Eyelid is an eyelid boundary: one row per column, for the columns
// starting at Start.
type Eyelid struct {
	Start int
	Rows  []int
}

// RowAt returns the boundary row of column x, or 0 for columns the
// curve doesn't cover.
func (e Eyelid) RowAt(x int) int {
	i := x - e.Start
	if i < 0 || i >= len(e.Rows) {
		return 0
	}
	return e.Rows[i]
}

// UpperEyelid traces the upper eyelid across the width of the limbus,
// from an Up gradient image.
//
// For each column, it looks between the top of the pupil and the top
// of the limbus for the strongest edge. Edges too close to the pupil
// are ignored: that's where the pupil's own boundary is. Columns with
// no edge at all get row 0, which occludes nothing.
func UpperEyelid(grad *raster.Gray, limbus, pupil location.Circle) Eyelid {
	start := int(limbus.X - limbus.R)
	end := int(limbus.X + limbus.R)
	from, to := int(pupil.Y-pupil.R), int(limbus.Y-limbus.R)
	limit := pupil.Y - pupil.R*eyelidMargin

	ret := Eyelid{Start: start, Rows: make([]int, 0, end-start+1)}
	for col := start; col <= end; col++ {
		var best uint8
		target := 0
		for row := from; row > to; row-- {
			if !grad.In(col, row) || float64(row) >= limit {
				continue
			}
			if v := grad.At(col, row); v > best {
				best, target = v, row
			}
		}
		ret.Rows = append(ret.Rows, target)
	}
	return ret
}

// LowerEyelid masks the lower eyelid in the red channel of an
// unwrapped iris. Occluded pixels are 0, the rest 255.
//
// Skin is much redder than iris. We measure the red level over the
// middle half of the columns and the outer half of the rows, and if
// it varies enough to suggest something other than iris is in there,
// everything redder than one standard deviation above the mean goes.
func LowerEyelid(red *raster.Gray) *raster.Gray {
	out := raster.NewGrayFilled(red.Width, red.Height, 255)

	var samples []float64
	for y := 0; y <= red.Height/2 && y < red.Height; y++ {
		for x := red.Width / 4; x <= 3*red.Width/4 && x < red.Width; x++ {
			samples = append(samples, float64(red.At(x, y)))
		}
	}
	if len(samples) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(samples, nil)
	if std <= mean/4 {
		return out
	}

	threshold := int(mean + std)
	for i, v := range red.Pix {
		if int(v) > threshold {
			out.Pix[i] = 0
		}
	}
	return out
}
