package encoding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"go.universe.tf/iris/internal/raster"
)

const bins = 256

// Spatiogram is an intensity histogram that also remembers where in
// the image each intensity lives: for every bin, the mean and
// variance of the positions of its pixels, on a grid spanning [-1, 1]
// in both directions.
type Spatiogram struct {
	Histogram [bins]float64
	Mean      [bins][2]float64
	Variance  [bins][2]float64
}

// EncodeSpatiogram builds the spatiogram of the visible pixels of
// norm. Every visible pixel weighs the same, and the weights sum to 1.
// Variances are floored at the smallest pixel weight, masked pixels
// included.
func EncodeSpatiogram(norm, mask *raster.Gray) (Spatiogram, error) {
	if norm.Width != mask.Width || norm.Height != mask.Height {
		return Spatiogram{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSize, norm.Width, norm.Height, mask.Width, mask.Height)
	}

	weights := make([]float64, len(mask.Pix))
	for i, v := range mask.Pix {
		weights[i] = float64(v)
	}
	sum := floats.Sum(weights)
	if sum == 0 {
		return Spatiogram{}, ErrEmptyMask
	}
	floats.Scale(1/sum, weights)
	floor := floats.Min(weights)

	var (
		ret  Spatiogram
		sq   [bins][2]float64
		wsum [bins]float64
	)
	for y := 0; y < norm.Height; y++ {
		gy := grid(y, norm.Height)
		for x := 0; x < norm.Width; x++ {
			gx := grid(x, norm.Width)
			w := weights[y*norm.Width+x]
			b := norm.At(x, y)
			ret.Histogram[b] += w
			wsum[b] += w
			ret.Mean[b][0] += gx * w
			ret.Mean[b][1] += gy * w
			sq[b][0] += gx * gx * w
			sq[b][1] += gy * gy * w
		}
	}

	for b := range wsum {
		if wsum[b] == 0 {
			wsum[b] = 1
		}
		for d := 0; d < 2; d++ {
			mean := ret.Mean[b][d] / wsum[b]
			ret.Mean[b][d] = mean
			ret.Variance[b][d] = max(sq[b][d]/wsum[b]-mean*mean, floor)
		}
	}
	return ret, nil
}

// grid maps i in [0, n) linearly onto [-1, 1].
func grid(i, n int) float64 {
	if n < 2 {
		return 0
	}
	return -1 + 2*float64(i)/float64(n-1)
}

// CompareSpatiogram returns the similarity of two spatiograms: the
// histogram overlap, with each bin weighted by how well the two
// spatial Gaussians of that bin agree. Two identical spatiograms
// score the total weight of their bins with non-zero spatial
// variance, 1 at most. Bins whose weight is undefined are skipped.
func CompareSpatiogram(a, b Spatiogram) float64 {
	c := 2 * math.Sqrt(2*math.Pi)
	c2 := 1 / (2 * math.Pi)

	// nz replaces zero by one, so that empty bins don't divide by
	// zero.
	nz := func(v float64) float64 {
		if v == 0 {
			return 1
		}
		return v
	}

	var total float64
	for i := 0; i < bins; i++ {
		sa, sb := a.Variance[i], b.Variance[i]
		qx, qy := sa[0]+sb[0], sa[1]+sb[1]
		q := c * math.Pow(qx*qy, 0.25)

		ix := 1 / (1/nz(sa[0]) + 1/nz(sb[0]))
		iy := 1 / (1/nz(sa[1]) + 1/nz(sb[1]))
		bigQ := c * math.Pow(ix*iy, 0.25)

		dx := a.Mean[i][0] - b.Mean[i][0]
		dy := a.Mean[i][1] - b.Mean[i][1]
		qx, qy = 2*qx, 2*qy
		z := c2 / math.Sqrt(qx*qy) * math.Exp(-0.5*(dx*dx/nz(qx)+dy*dy/nz(qy)))

		s := math.Sqrt(a.Histogram[i]) * math.Sqrt(b.Histogram[i]) * q * bigQ * z
		if math.IsNaN(s) {
			continue
		}
		total += s
	}
	return total
}
