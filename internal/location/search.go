package location

import (
	"fmt"
	"image"
	"runtime"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"go.universe.tf/iris/internal/raster"
)

// A Searcher proposes candidate circles with a radius in
// [minRadius, maxRadius]. Finding nothing is not an error.
type Searcher interface {
	Search(im *raster.Gray, minRadius, maxRadius float64) ([]Circle, error)
}

// DefaultCannyThresholds are the edge detector thresholds the contour
// searcher sweeps through.
var DefaultCannyThresholds = []float64{0.05, 0.10, 0.15, 0.20, 0.25, 0.30, 0.35, 0.40, 0.45, 0.50, 0.55}

// minContourPoints is the smallest contour worth fitting. Five points
// or fewer fit almost any circle you like.
const minContourPoints = 6

// ContourSearcher finds circles by running Canny at several
// thresholds, and fitting a circle to every outer contour it finds.
type ContourSearcher struct {
	// Thresholds are the low Canny thresholds to try. The high
	// threshold is always three times the low one.
	Thresholds []float64
	// Equalize stretches the histogram before edge detection.
	Equalize bool
}

// NewContourSearcher returns a ContourSearcher with the default
// threshold sweep.
func NewContourSearcher() *ContourSearcher {
	return &ContourSearcher{Thresholds: DefaultCannyThresholds, Equalize: true}
}

func (s *ContourSearcher) Search(im *raster.Gray, minRadius, maxRadius float64) ([]Circle, error) {
	src, err := im.Mat()
	if err != nil {
		return nil, fmt.Errorf("contour search: %w", err)
	}
	defer src.Close()

	// The image is usually posterized already, but the mode filter
	// leaves single pixel specks along region borders. A small
	// median blur takes care of those.
	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.MedianBlur(src, &smooth, 3)
	if s.Equalize {
		gocv.EqualizeHist(smooth, &smooth)
	}

	var contours [][]image.Point
	edges := gocv.NewMat()
	defer edges.Close()
	for _, t := range s.Thresholds {
		gocv.Canny(smooth, &edges, float32(t), float32(3*t))
		found := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxTC89KCOS)
		for i := 0; i < found.Size(); i++ {
			if pts := found.At(i).ToPoints(); len(pts) >= minContourPoints {
				contours = append(contours, pts)
			}
		}
		found.Close()
	}

	bounds := im.Bounds()
	fits := fitAll(contours)
	var ret []Circle
	for _, c := range fits {
		if c.Valid() && c.InsideRect(bounds) && c.R >= minRadius && c.R <= maxRadius {
			ret = append(ret, c)
		}
	}
	return ret, nil
}

// fitAll fits a circle to every contour. Each fit goes into its own
// slot, so the output order matches the input order no matter how the
// work was scheduled.
func fitAll(contours [][]image.Point) []Circle {
	ret := make([]Circle, len(contours))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, contour := range contours {
		g.Go(func() error {
			ret[i] = FitTaubin(pointsOf(contour))
			return nil
		})
	}
	// The fits never fail, Wait is only a barrier.
	_ = g.Wait()
	return ret
}
