package location

import (
	"math"

	"go.universe.tf/iris/internal/raster"
)

// solid returns a w x h image filled with v.
func solid(w, h int, v uint8) *raster.Gray {
	return raster.NewGrayFilled(w, h, v)
}

// paintDisk sets every pixel within r of (cx, cy) to v.
func paintDisk(im *raster.Gray, cx, cy, r float64, v uint8) {
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			if math.Hypot(float64(x)-cx, float64(y)-cy) <= r {
				im.Set(x, y, v)
			}
		}
	}
}

// syntheticEye is a dark pupil in a mid-gray iris on a bright sclera,
// all concentric around (100, 100).
func syntheticEye() *raster.Gray {
	im := solid(200, 200, 220)
	paintDisk(im, 100, 100, 60, 120)
	paintDisk(im, 100, 100, 20, 20)
	return im
}
