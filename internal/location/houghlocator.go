package location

import (
	"fmt"
	"math"

	"go.universe.tf/iris/internal/raster"
)

// Retry is a bounded, linearly growing multiplier.
type Retry struct {
	Start, Step, Max float64
}

// HoughLocator finds the pupil first, then the limbus around it.
type HoughLocator struct {
	Pupil  *HoughSearcher
	Limbus *HoughSearcher
	// LimbusFactor: the limbus must be at least this many times
	// bigger than the pupil.
	LimbusFactor float64
	// CenterRetry grows the distance, in pupil radii, the limbus
	// center may sit from the pupil center.
	CenterRetry Retry
}

// NewHoughLocator returns a HoughLocator with the usual tuning.
func NewHoughLocator(seed int64) *HoughLocator {
	return &HoughLocator{
		Pupil:        NewPupilHoughSearcher(seed),
		Limbus:       NewLimbusHoughSearcher(seed),
		LimbusFactor: 1.5,
		CenterRetry:  Retry{Start: 0.3, Step: 0.05, Max: 0.7},
	}
}

func (h *HoughLocator) Locate(im *raster.Gray) (Iris, error) {
	pupil, err := h.FindPupil(im)
	if err != nil {
		return Iris{}, fmt.Errorf("pupil: %w", err)
	}
	limbus, err := h.FindLimbus(im, pupil)
	if err != nil {
		return Iris{}, fmt.Errorf("limbus: %w", err)
	}
	iris := Iris{Pupil: pupil, Limbus: limbus}
	if !iris.Valid() {
		return Iris{}, fmt.Errorf("%w: pupil %v outside limbus %v", ErrNotFound, pupil, limbus)
	}
	return iris, nil
}

// FindPupil returns the consensus of all the pupil candidates.
func (h *HoughLocator) FindPupil(im *raster.Gray) (Circle, error) {
	cs, err := h.Pupil.Search(im, 0, 0)
	if err != nil {
		return Circle{}, err
	}
	return FilterCircles(cs)
}

// FindLimbus looks for a circle roughly concentric with pupil, and
// comfortably bigger than it.
//
// Eyes aren't perfectly concentric, so how far off-center the limbus
// may be is a guess. We start strict, and loosen up each time nothing
// is found, until the multiplier ceiling.
func (h *HoughLocator) FindLimbus(im *raster.Gray, pupil Circle) (Circle, error) {
	minR := math.Ceil(pupil.R * h.LimbusFactor)

	// Step by index rather than accumulating floats, so the number
	// of attempts doesn't depend on rounding.
	steps := int(math.Round((h.CenterRetry.Max-h.CenterRetry.Start)/h.CenterRetry.Step)) + 1
	for i := 0; i < steps; i++ {
		mult := h.CenterRetry.Start + float64(i)*h.CenterRetry.Step
		reach := math.Ceil(pupil.R * mult)

		search := *h.Limbus
		search.Accept = func(c Circle) bool {
			return c.R > minR && pupil.Distance(c.X, c.Y) < reach
		}
		cs, err := search.Search(im, 0, 0)
		if err != nil {
			return Circle{}, err
		}
		if c, err := FilterCircles(cs); err == nil {
			return c, nil
		}
	}
	return Circle{}, ErrNotFound
}
