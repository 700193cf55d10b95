package segment

import (
	"fmt"

	"go.universe.tf/iris/internal/location"
	"go.universe.tf/iris/internal/mask"
	"go.universe.tf/iris/internal/normalize"
	"go.universe.tf/iris/internal/raster"
)

// NormalizedIris is an iris unwrapped into polar form, with masks of
// the usable texture in both the eye and the polar image. Mask pixels
// are 255 where the iris is visible, 0 elsewhere.
type NormalizedIris struct {
	Eye            *raster.BGR
	EyeMask        *raster.Gray
	Normalized     *raster.BGR
	NormalizedMask *raster.Gray
}

// NormalizeIris unwraps the iris of eye and works out which parts of
// it are hidden. The upper eyelid is traced on lids, a grayscale
// version of eye with its highlights painted over, or on eye itself
// when lids is nil.
//
// Three things get in the way of the iris texture. The upper eyelid
// comes down over the top of the limbus, and shows up as a strong
// bright-over-dark edge above the pupil. The lower eyelid is skin,
// which is much redder than iris, so it stands out in the red channel
// of the unwrapped image. Reflections are tiny and much brighter than
// their neighbors in the blue channel. Everything found ends up in
// one occlusion mask in eye coordinates, which is then carried over
// to the polar image.
func NormalizeIris(eye *raster.BGR, lids *raster.Gray, iris location.Iris) (NormalizedIris, error) {
	if !iris.Valid() {
		return NormalizedIris{}, fmt.Errorf("normalizing %s: %w", iris, location.ErrNotFound)
	}
	limbus, pupil := iris.Limbus, iris.Pupil

	if lids == nil {
		lids = eye.Gray()
	}
	if lids.Width != eye.Width || lids.Height != eye.Height {
		return NormalizedIris{}, fmt.Errorf("eyelid image is %dx%d, eye is %dx%d", lids.Width, lids.Height, eye.Width, eye.Height)
	}
	grad, err := mask.Gradient(lids, mask.Up)
	if err != nil {
		return NormalizedIris{}, fmt.Errorf("eyelid gradient: %w", err)
	}
	lid := mask.UpperEyelid(grad, limbus, pupil)

	norm, m := normalize.Normalize(eye, limbus, pupil)
	lower := mask.LowerEyelid(norm.Channel(2))
	refl, err := mask.Reflections(norm.Channel(0))
	if err != nil {
		return NormalizedIris{}, fmt.Errorf("reflections: %w", err)
	}

	occ, err := mask.Occlusion(eye.Width, eye.Height, m, lower, refl, lid, limbus)
	if err != nil {
		return NormalizedIris{}, fmt.Errorf("occlusion: %w", err)
	}
	eyeMask := mask.Iris(eye.Width, eye.Height, limbus, pupil, occ)

	return NormalizedIris{
		Eye:            eye,
		EyeMask:        eyeMask,
		Normalized:     norm,
		NormalizedMask: mask.Normalized(eyeMask, m),
	}, nil
}
