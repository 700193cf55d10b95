package location

import (
	"fmt"

	"go.universe.tf/iris/internal/raster"
)

// A Locator finds both iris boundaries in a grayscale eye image.
type Locator interface {
	Locate(im *raster.Gray) (Iris, error)
}

// DefaultPosterizeLevels is the exclusive upper bound on the
// posterization window half-size the contour locator tries.
const DefaultPosterizeLevels = 18

// Range is a radius range, expressed as fractions of some reference
// length.
type Range struct {
	Min, Max float64
}

// PupilFilter rejects implausible pupil candidates.
type PupilFilter struct {
	// MaxMean is the brightest a pupil's interior may be, on the
	// posterized image.
	MaxMean float64
	// MaxOffset is how far, as a fraction of the crop height, the
	// pupil center may sit from the middle of the limbus.
	MaxOffset float64
	// Ratio bounds limbus radius / pupil radius.
	Ratio Range
}

// ContourLocator finds the limbus first, then looks for the pupil
// inside it. Both searches posterize the image at increasing
// strengths, propose circles with a Searcher, and keep the best
// scoring one.
type ContourLocator struct {
	Searcher Searcher
	// Levels: window half-sizes 1 through Levels-1 are tried.
	Levels int
	// Limbus is the limbus radius range, as a fraction of the image
	// height.
	Limbus Range
	// Pupil is the pupil radius range, as a fraction of the limbus
	// crop height.
	Pupil       Range
	PupilFilter PupilFilter
}

// NewContourLocator returns a ContourLocator with the usual tuning.
func NewContourLocator(s Searcher) *ContourLocator {
	return &ContourLocator{
		Searcher: s,
		Levels:   DefaultPosterizeLevels,
		Limbus:   Range{0.15, 0.5},
		Pupil:    Range{0.1, 0.2},
		PupilFilter: PupilFilter{
			MaxMean:   40,
			MaxOffset: 0.05,
			Ratio:     Range{3, 5.5},
		},
	}
}

func (l *ContourLocator) Locate(im *raster.Gray) (Iris, error) {
	limbus, err := l.FindLimbus(im)
	if err != nil {
		return Iris{}, fmt.Errorf("limbus: %w", err)
	}
	pupil, err := l.FindPupil(im, limbus)
	if err != nil {
		return Iris{}, fmt.Errorf("pupil: %w", err)
	}
	iris := Iris{Pupil: pupil, Limbus: limbus}
	if !iris.Valid() {
		return Iris{}, fmt.Errorf("%w: pupil %v outside limbus %v", ErrNotFound, pupil, limbus)
	}
	return iris, nil
}

// FindLimbus locates the iris/sclera boundary.
//
// The limbus is a big, soft edge, and iris texture right next to it
// produces plenty of competing edges. Posterizing at increasing
// window sizes progressively erases that texture. Somewhere along the
// way the limbus becomes the cleanest circle in the picture, and the
// scoring picks it out.
func (l *ContourLocator) FindLimbus(im *raster.Gray) (Circle, error) {
	size := float64(im.Height)

	var winners []ScoredCircle
	for k := 1; k < l.Levels; k++ {
		poster := Posterize(im, k)
		cs, err := l.Searcher.Search(poster, size*l.Limbus.Min, size*l.Limbus.Max)
		if err != nil {
			return Circle{}, err
		}
		// Candidates are scored against the original image: the
		// posterized one is flat by construction, and would make
		// every disk look homogeneous.
		scored := make([]ScoredCircle, len(cs))
		for i, c := range cs {
			scored[i] = ScoredCircle{Circle: c, Score: Score(im, c)}
		}
		if w, ok := best(scored); ok {
			winners = append(winners, w)
		}
	}

	w, ok := best(winners)
	if !ok || !w.Valid() {
		return Circle{}, ErrNotFound
	}
	return w.Circle, nil
}
