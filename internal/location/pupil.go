package location

import (
	"image"

	"go.universe.tf/iris/internal/raster"
)

// FindPupil locates the pupil inside an already located limbus.
//
// We zoom in on the limbus's bounding box, which makes the pupil a
// big object in the middle of the picture, and run the same
// posterize/search/score loop as for the limbus, but with a much
// pickier filter on what counts as a pupil.
func (l *ContourLocator) FindPupil(im *raster.Gray, limbus Circle) (Circle, error) {
	box := limbus.Bounds().Intersect(im.Bounds())
	if box.Empty() {
		return Circle{}, ErrNotFound
	}
	crop := im.SubImage(box)
	size := float64(crop.Height)
	center := image.Point{crop.Width / 2, crop.Height / 2}

	// The textbook pupil: dead center, a quarter of the limbus. It
	// always takes part, so we come back with *something* even when
	// no contour survives the filters.
	fallback := Circle{X: float64(center.X), Y: float64(center.Y), R: limbus.R / 4}
	winners := []ScoredCircle{{Circle: fallback, Score: pupilScore(crop, fallback)}}

	for k := 1; k < l.Levels; k++ {
		poster := Posterize(crop, k)
		cs, err := l.Searcher.Search(poster, size*l.Pupil.Min, size*l.Pupil.Max)
		if err != nil {
			return Circle{}, err
		}
		var scored []ScoredCircle
		for _, c := range cs {
			if !l.PupilFilter.accept(poster, c, center, size, limbus) {
				continue
			}
			scored = append(scored, ScoredCircle{Circle: c, Score: pupilScore(crop, c)})
		}
		if w, ok := best(scored); ok {
			winners = append(winners, w)
		}
	}

	w, ok := best(winners)
	if !ok || !w.Valid() {
		return Circle{}, ErrNotFound
	}
	// Back from crop coordinates to image coordinates.
	return w.Translate(float64(box.Min.X), float64(box.Min.Y)), nil
}

// accept reports whether c looks like a pupil of limbus, in a crop of
// the given height centered on center.
func (f PupilFilter) accept(poster *raster.Gray, c Circle, center image.Point, size float64, limbus Circle) bool {
	// Pupils are dark. A circle with nothing inside is no pupil
	// either.
	if mean, ok := Mean(poster, c); !ok || mean > f.MaxMean {
		return false
	}
	cx, cy := float64(center.X), float64(center.Y)
	if !c.Contains(cx, cy) {
		return false
	}
	if c.Distance(cx, cy) > f.MaxOffset*size {
		return false
	}
	ratio := limbus.R / c.R
	return ratio >= f.Ratio.Min && ratio <= f.Ratio.Max
}
