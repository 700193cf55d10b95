package location

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"runtime"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"go.universe.tf/iris/internal/raster"
)

// EdgeMode selects how HoughSearcher turns the image into an edge map.
type EdgeMode int

const (
	// EdgeThreshold binarizes the image first, for dark blobs (the
	// pupil).
	EdgeThreshold EdgeMode = iota
	// EdgeCanny runs Canny directly, for soft boundaries (the
	// limbus).
	EdgeCanny
)

// HoughSearcher finds circles with OpenCV's gradient Hough transform,
// over a sweep of preprocessing parameters.
//
// The Hough accumulator threshold (Param2) starts high and is lowered
// one step at a time until enough circles have been collected or the
// floor is reached. Every step runs the whole median x threshold
// sweep, each combination with a freshly jittered blur.
type HoughSearcher struct {
	Edges EdgeMode
	// Medians are median blur half-sizes: the kernel is 2m+1.
	Medians []int
	// Thresholds are binarization levels for EdgeThreshold, or the
	// high Canny threshold for EdgeCanny.
	Thresholds []float64

	Param1      float64
	Param2      int
	Param2Floor int
	// Enough stops the sweep once this many circles have been found.
	Enough int

	// Seed seeds the blur jitter. Every Search call starts from the
	// same seed, so results are reproducible.
	Seed int64

	// Accept, when set, drops candidates before they count towards
	// Enough.
	Accept func(Circle) bool
}

// NewPupilHoughSearcher returns the sweep used to find pupils.
func NewPupilHoughSearcher(seed int64) *HoughSearcher {
	return &HoughSearcher{
		Edges:       EdgeThreshold,
		Medians:     []int{3, 5, 7},
		Thresholds:  []float64{20, 25, 30, 35, 40, 45, 50, 55, 60},
		Param1:      200,
		Param2:      120,
		Param2Floor: 35,
		Enough:      100,
		Seed:        seed,
	}
}

// NewLimbusHoughSearcher returns the sweep used to find the limbus.
func NewLimbusHoughSearcher(seed int64) *HoughSearcher {
	return &HoughSearcher{
		Edges:       EdgeCanny,
		Medians:     []int{8, 10, 12, 14, 16, 18, 20},
		Thresholds:  []float64{430, 480, 530},
		Param1:      200,
		Param2:      120,
		Param2Floor: 40,
		Enough:      50,
		Seed:        seed,
	}
}

// houghJob is one point of the preprocessing sweep.
type houghJob struct {
	median    int
	threshold float64
	blur      int
}

func (s *HoughSearcher) Search(im *raster.Gray, minRadius, maxRadius float64) ([]Circle, error) {
	src, err := im.Mat()
	if err != nil {
		return nil, fmt.Errorf("hough search: %w", err)
	}
	defer src.Close()

	rng := rand.New(rand.NewSource(s.Seed))

	var ret []Circle
	for p2 := s.Param2; p2 > s.Param2Floor && len(ret) < s.Enough; p2-- {
		// Draw all the random numbers up front, in a fixed order,
		// so the parallel section below can't reorder them.
		var jobs []houghJob
		for _, m := range s.Medians {
			for _, t := range s.Thresholds {
				jobs = append(jobs, houghJob{
					median:    2*m + 1,
					threshold: t,
					blur:      blurKernel(rng),
				})
			}
		}

		found := make([][]Circle, len(jobs))
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, job := range jobs {
			g.Go(func() error {
				cs, err := s.run(src, job, float64(p2), minRadius, maxRadius)
				found[i] = cs
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, cs := range found {
			for _, c := range cs {
				if s.Accept == nil || s.Accept(c) {
					ret = append(ret, c)
				}
			}
		}
	}
	return ret, nil
}

// run builds one edge map and returns the circles Hough finds in it.
func (s *HoughSearcher) run(src gocv.Mat, job houghJob, param2, minRadius, maxRadius float64) ([]Circle, error) {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.MedianBlur(src, &blurred, job.median)

	edges := gocv.NewMat()
	defer edges.Close()
	switch s.Edges {
	case EdgeThreshold:
		// The pupil is the darkest thing around. Make it white,
		// everything else black.
		bin := gocv.NewMat()
		defer bin.Close()
		gocv.Threshold(blurred, &bin, float32(job.threshold), 255, gocv.ThresholdBinaryInv)

		filled := fillHoles(bin)
		defer filled.Close()
		gocv.Canny(filled, &edges, 20, 100)
	case EdgeCanny:
		gocv.Canny(blurred, &edges, 0, float32(job.threshold))
	default:
		return nil, fmt.Errorf("hough search: unknown edge mode %d", s.Edges)
	}

	// Fatten and soften the edges. Hough voting works better on a
	// smooth ridge than on a one pixel wide line.
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)
	if s.Edges == EdgeThreshold {
		gocv.Dilate(edges, &edges, kernel)
	}
	gocv.GaussianBlur(edges, &edges, image.Point{job.blur, job.blur}, 0, 0, gocv.BorderDefault)

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(edges, &circles, gocv.HoughGradient, 1, 1, s.Param1, param2, int(minRadius), int(maxRadius))
	if circles.Empty() || circles.Cols() == 0 {
		return nil, nil
	}

	ret := make([]Circle, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		c := Circle{
			X: float64(circles.GetFloatAt(0, i*3)),
			Y: float64(circles.GetFloatAt(0, i*3+1)),
			R: float64(circles.GetFloatAt(0, i*3+2)),
		}
		if c.Valid() && (minRadius <= 0 || c.R >= minRadius) && (maxRadius <= 0 || c.R <= maxRadius) {
			ret = append(ret, c)
		}
	}
	return ret, nil
}

// fillHoles fills in black holes inside white blobs. The input is
// assumed to be a binary black-and-white image.
//
// Reflections of the camera's lights very often sit right in the
// pupil, and show up as a bright hole in an otherwise dark disk. Each
// one of those is a false circle, so we paint every outer contour
// solid white, which plugs them.
func fillHoles(src gocv.Mat) gocv.Mat {
	ret := src.Clone()
	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()
	for i := 0; i < contours.Size(); i++ {
		gocv.DrawContours(&ret, contours, i, color.RGBA{255, 255, 255, 255}, -1)
	}
	return ret
}

// centerSpread is how many standard deviations a center may sit from
// the mean before FilterCircles drops it.
const centerSpread = 1.5

// FilterCircles reduces a pile of Hough candidates to a single circle.
//
// Hough with a low accumulator threshold finds the real boundary many
// times over, plus a scattering of junk. First we drop candidates
// whose center is far from the crowd. Then, if enough are left, we
// find the most agreed-upon radius and drop candidates whose radius
// strays from it by more than one standard deviation. Whatever
// survives gets averaged.
func FilterCircles(cs []Circle) (Circle, error) {
	if len(cs) == 0 {
		return Circle{}, ErrNotFound
	}

	xs, ys, rs := components(cs)
	mx, sx := stat.PopMeanStdDev(xs, nil)
	my, sy := stat.PopMeanStdDev(ys, nil)

	var near []Circle
	for _, c := range cs {
		if math.Abs(c.X-mx) <= centerSpread*sx && math.Abs(c.Y-my) <= centerSpread*sy {
			near = append(near, c)
		}
	}

	filtered := near
	if len(near) >= 3 {
		_, _, rs = components(near)
		_, sr := stat.PopMeanStdDev(rs, nil)
		anchor := StableRadius(rs)
		filtered = nil
		for _, c := range near {
			if math.Abs(c.R-anchor) <= sr {
				filtered = append(filtered, c)
			}
		}
	}
	if len(filtered) == 0 {
		return Circle{}, ErrNotFound
	}
	return meanCircle(filtered), nil
}

// StableRadius returns the radius in rs with the smallest total
// absolute difference to all the others, which is the most agreed
// upon one. Ties keep the first.
func StableRadius(rs []float64) float64 {
	var (
		ret     float64
		bestSum = math.Inf(1)
	)
	for _, a := range rs {
		var sum float64
		for _, b := range rs {
			sum += math.Abs(a - b)
		}
		if sum < bestSum {
			ret, bestSum = a, sum
		}
	}
	return ret
}

func components(cs []Circle) (xs, ys, rs []float64) {
	xs = make([]float64, len(cs))
	ys = make([]float64, len(cs))
	rs = make([]float64, len(cs))
	for i, c := range cs {
		xs[i], ys[i], rs[i] = c.X, c.Y, c.R
	}
	return xs, ys, rs
}

func meanCircle(cs []Circle) Circle {
	xs, ys, rs := components(cs)
	return Circle{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil), R: stat.Mean(rs, nil)}
}

// blurKernel draws an odd Gaussian kernel size, 11 to 21.
func blurKernel(rng *rand.Rand) int {
	return 2*(5+rng.Intn(6)) + 1
}
