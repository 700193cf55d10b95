// Package segment runs the whole iris pipeline on a photograph: find
// the eye, find the iris boundaries, unwrap the iris and mask out
// whatever covers it.
package segment

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"go.universe.tf/iris/internal/config"
	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/logging"
	"go.universe.tf/iris/internal/preprocess"
	"go.universe.tf/iris/internal/raster"
)

// ErrSegmentation is wrapped by every Segment failure.
var ErrSegmentation = errors.New("segmentation failed")

// Result is a segmented eye. Circles are in the coordinates of the
// cropped eye, which sits at Crop in the source image.
type Result struct {
	Iris       location.Iris
	Crop       image.Rectangle
	Detected   bool
	Normalized NormalizedIris
}

// A Segmentator holds a locator and its preprocessing settings. It
// keeps no state between calls, and calls into its detector one at a
// time, so one Segmentator can serve several goroutines.
type Segmentator struct {
	locator        location.Locator
	detector       preprocess.Detector
	minEyeWidth    int
	finalSize      int
	clip           float64
	reflections    bool
	reflectionMode preprocess.ReflectionMode
	log            *zap.Logger
}

type Option func(*Segmentator)

// WithLogger makes Segment report what it finds at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Segmentator) { s.log = l }
}

// WithDetector sets the eye detector used to crop the input. Without
// one, the centered square of the picture is used.
func WithDetector(d preprocess.Detector) Option {
	return func(s *Segmentator) { s.detector = preprocess.Serialize(d) }
}

// New builds the Segmentator for cfg.Strategy.
func New(cfg config.Config, opts ...Option) (*Segmentator, error) {
	switch cfg.Strategy {
	case config.StrategyContour:
		return NewIsis(cfg, opts...), nil
	case config.StrategyHough:
		return NewHough(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", config.ErrInvalid, cfg.Strategy)
	}
}

// NewIsis returns a Segmentator using posterization and contour
// fitting, with specular reflections painted over first.
func NewIsis(cfg config.Config, opts ...Option) *Segmentator {
	c := cfg.Contour
	searcher := &location.ContourSearcher{Thresholds: c.Thresholds, Equalize: c.Equalize}
	l := location.NewContourLocator(searcher)
	l.Levels = c.PosterizeLevels
	l.Limbus = location.Range(c.Limbus)
	l.Pupil = location.Range(c.Pupil)
	l.PupilFilter = location.PupilFilter{
		MaxMean:   c.PupilMaxMean,
		MaxOffset: c.PupilMaxOffset,
		Ratio:     location.Range(c.RadiusRatio),
	}
	return newSegmentator(cfg, l, true, opts)
}

// NewHough returns a Segmentator using Hough transform sweeps.
func NewHough(cfg config.Config, opts ...Option) *Segmentator {
	h := cfg.Hough
	l := location.NewHoughLocator(h.Seed)
	l.LimbusFactor = h.LimbusFactor
	l.CenterRetry = location.Retry{Start: h.CenterStart, Step: h.CenterStep, Max: h.CenterMax}
	return newSegmentator(cfg, l, false, opts)
}

func newSegmentator(cfg config.Config, l location.Locator, reflections bool, opts []Option) *Segmentator {
	p := cfg.Preprocess
	if p.Reflections != nil {
		reflections = *p.Reflections
	}
	s := &Segmentator{
		locator:        l,
		minEyeWidth:    p.MinEyeWidth,
		finalSize:      p.FinalSize,
		clip:           p.ClipPercent,
		reflections:    reflections,
		reflectionMode: preprocess.ReflectionMode(p.ReflectionMode),
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment locates the iris in src, a BGR or grayscale image, and
// builds its normalized form and masks.
func (s *Segmentator) Segment(src gocv.Mat) (Result, error) {
	if src.Empty() {
		return Result{}, fmt.Errorf("%w: empty image", ErrSegmentation)
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	if src.Channels() == 1 {
		gocv.CvtColor(src, &bgr, gocv.ColorGrayToBGR)
	} else {
		src.CopyTo(&bgr)
	}

	roi, detected := preprocess.Crop(bgr, s.detector, s.minEyeWidth)
	crop := bgr.Region(roi)
	defer crop.Close()
	eye, err := raster.BGRFromMat(crop)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}

	// Highlights get painted over at full resolution: the eyelid
	// search below runs on the full size crop too, and a highlight
	// above the pupil looks just like an eyelid edge.
	work := crop
	var lids *raster.Gray
	if s.reflections {
		filtered := preprocess.FilterReflections(crop, s.reflectionMode)
		defer filtered.Close()
		work = filtered
		if lids, err = grayRaster(filtered); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrSegmentation, err)
		}
	}

	small, scaling := preprocess.Scale(work, s.finalSize)
	defer small.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	contrast := preprocess.AutoContrast(gray, s.clip)
	defer contrast.Close()

	im, err := raster.GrayFromMat(contrast)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}
	found, err := s.locator.Locate(im)
	if err != nil {
		s.log.Debug("no iris found", zap.Stringer("crop", roi), zap.Bool("detected", detected), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}

	iris := location.Iris{
		Pupil:  scaling.Circle(found.Pupil),
		Limbus: scaling.Circle(found.Limbus),
	}
	s.log.Debug("located iris",
		append(append([]zap.Field{zap.Stringer("crop", roi), zap.Bool("detected", detected)},
			logging.CircleFields("pupil", iris.Pupil.X, iris.Pupil.Y, iris.Pupil.R)...),
			logging.CircleFields("limbus", iris.Limbus.X, iris.Limbus.Y, iris.Limbus.R)...)...)

	norm, err := NormalizeIris(eye, lids, iris)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}
	return Result{Iris: iris, Crop: roi, Detected: detected, Normalized: norm}, nil
}

func grayRaster(bgr gocv.Mat) (*raster.Gray, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return raster.GrayFromMat(gray)
}
