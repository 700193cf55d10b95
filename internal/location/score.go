package location

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"go.universe.tf/iris/internal/raster"
)

// Score is the quality measure the locators maximise: how uniform
// the disk is, plus how clean its boundary is.
func Score(im *raster.Gray, c Circle) float64 {
	return Homogeneity(im, c) + Separability(im, c)
}

// pupilScore is Score with negative separability clamped to zero. A
// pupil is darker than the iris around it, a negative contrast just
// means "no boundary here".
func pupilScore(im *raster.Gray, c Circle) float64 {
	return Homogeneity(im, c) + math.Max(Separability(im, c), 0)
}

// Homogeneity returns the fraction of pixels in the filled disk c that
// fall in its most common intensity. A disk with no pixels in the
// image scores 0.
func Homogeneity(im *raster.Gray, c Circle) float64 {
	var (
		hist  [256]int
		total int
	)
	r := c.Bounds()
	r.Max = r.Max.Add(image.Pt(1, 1))
	r = r.Intersect(im.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c.Distance(float64(x), float64(y)) <= c.R {
				hist[im.At(x, y)]++
				total++
			}
		}
	}
	if total == 0 {
		return 0
	}
	top := 0
	for _, n := range hist {
		top = max(top, n)
	}
	return float64(top) / float64(total)
}

// Separability measures the contrast across c's boundary.
//
// For every degree around the circle, we sample one pixel just inside
// (0.8R) and one just outside (1.2R), and take the absolute
// difference. A real boundary gives big differences all the way
// round, so we reward a high mean and punish a high spread. The +1
// keeps a perfectly uniform ring from dividing by zero.
func Separability(im *raster.Gray, c Circle) float64 {
	diffs := make([]float64, 360)
	for i := range diffs {
		a := float64(i) * math.Pi / 180
		cos, sin := math.Cos(a), math.Sin(a)

		inX := clamp(int(c.X+c.R*0.8*cos), 0, im.Width-1)
		inY := clamp(int(c.Y+c.R*0.8*sin), 0, im.Height-1)
		outX := clamp(int(c.X+c.R*1.2*cos), 0, im.Width-1)
		outY := clamp(int(c.Y+c.R*1.2*sin), 0, im.Height-1)

		diffs[i] = math.Abs(float64(im.At(outX, outY)) - float64(im.At(inX, inY)))
	}
	mean, std := stat.PopMeanStdDev(diffs, nil)
	return mean / (std + 1)
}

// Mean returns the average intensity of the pixels strictly inside c.
// ok is false if no pixel is inside c, which happens for tiny or
// off-image circles.
func Mean(im *raster.Gray, c Circle) (mean float64, ok bool) {
	var sum, count int
	r := c.Bounds().Intersect(im.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c.Contains(float64(x), float64(y)) {
				sum += int(im.At(x, y))
				count++
			}
		}
	}
	if count == 0 {
		return 0, false
	}
	return float64(sum) / float64(count), true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
