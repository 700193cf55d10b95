// Package encoding turns a normalized iris into texture descriptors
// that can be compared across captures.
package encoding

import (
	"errors"
	"fmt"
	"math/bits"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"go.universe.tf/iris/internal/raster"
)

var (
	// ErrSize is returned when an image and its mask disagree on
	// dimensions.
	ErrSize = errors.New("encoding: image and mask sizes differ")
	// ErrZones is returned for a zone count the image can't be split
	// into, or for comparing encodings with different zone counts.
	ErrZones = errors.New("encoding: bad zone count")
	// ErrEmptyMask is returned when there is no unmasked pixel to
	// encode.
	ErrEmptyMask = errors.New("encoding: mask hides everything")
)

// neighbors lists the 8-neighborhood clockwise from the top-left
// corner. Neighbor i sets bit 7-i of the code.
var neighbors = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}}

// LBPCodes computes the local binary pattern of every pixel of im: a
// bit per neighbor, set when the neighbor is strictly brighter than
// the center. Neighbors off the image count as not brighter.
//
// The returned mask is 255 for uniform patterns, those with at most
// two 0/1 transitions going around the circle. Uniform patterns are
// edges, corners and flat spots. The rest is mostly noise.
func LBPCodes(im *raster.Gray) (codes, uniform *raster.Gray) {
	codes = raster.NewGray(im.Width, im.Height)
	uniform = raster.NewGray(im.Width, im.Height)
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			center := im.At(x, y)
			var code uint8
			for i, d := range neighbors {
				nx, ny := x+d[0], y+d[1]
				if im.In(nx, ny) && im.At(nx, ny) > center {
					code |= 1 << (7 - i)
				}
			}
			codes.Set(x, y, code)
			if Uniform(code) {
				uniform.Set(x, y, 255)
			}
		}
	}
	return codes, uniform
}

// Uniform reports whether code has at most two circular bit
// transitions.
func Uniform(code uint8) bool {
	return bits.OnesCount8(code^bits.RotateLeft8(code, 1)) <= 2
}

// Zone is the LBP histogram of one horizontal band of the normalized
// iris.
type Zone struct {
	Histogram [256]float64
	// Total is the number of pixels in the band, Noise how many of
	// them were masked out.
	Total, Noise int
}

// LBP is an iris texture encoded as per-zone LBP histograms.
type LBP struct {
	Zones []Zone
}

// EncodeLBP splits norm into zones horizontal bands and builds the
// histogram of uniform LBP codes of each band, counting only pixels
// the mask leaves visible. Leftover rows at the bottom, when the
// height isn't a multiple of zones, are ignored.
func EncodeLBP(norm, mask *raster.Gray, zones int) (LBP, error) {
	if norm.Width != mask.Width || norm.Height != mask.Height {
		return LBP{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSize, norm.Width, norm.Height, mask.Width, mask.Height)
	}
	if zones <= 0 || zones > norm.Height {
		return LBP{}, fmt.Errorf("%w: %d zones for %d rows", ErrZones, zones, norm.Height)
	}

	codes, uniform := LBPCodes(norm)
	rows := norm.Height / zones
	ret := LBP{Zones: make([]Zone, zones)}
	for z := range ret.Zones {
		zone := &ret.Zones[z]
		for y := z * rows; y < (z+1)*rows; y++ {
			for x := 0; x < norm.Width; x++ {
				zone.Total++
				if mask.At(x, y) == 0 || uniform.At(x, y) == 0 {
					zone.Noise++
					continue
				}
				zone.Histogram[codes.At(x, y)]++
			}
		}
	}
	return ret, nil
}

// CompareLBP returns the distance between two LBP encodings, 0 for
// identical textures. Each zone contributes its Bhattacharyya
// distance, discounted by how much of the zone was hidden in either
// encoding.
func CompareLBP(a, b LBP) (float64, error) {
	if len(a.Zones) != len(b.Zones) || len(a.Zones) == 0 {
		return 0, fmt.Errorf("%w: comparing %d zones to %d", ErrZones, len(a.Zones), len(b.Zones))
	}
	var score float64
	for i := range a.Zones {
		za, zb := &a.Zones[i], &b.Zones[i]
		weight := 1.0
		if total := za.Total + zb.Total; total > 0 {
			weight = 1 - float64(za.Noise+zb.Noise)/float64(total)
		}
		score += Bhattacharyya(za.Histogram[:], zb.Histogram[:]) * weight
	}
	return score / float64(len(a.Zones)), nil
}

// Bhattacharyya returns OpenCV's Bhattacharyya distance between two
// histograms of the same length: 0 for identical shapes, 1 for
// disjoint ones. Histograms don't need to be normalized. An empty
// histogram is at distance 1 from everything.
func Bhattacharyya(h1, h2 []float64) float64 {
	if floats.Sum(h1) <= 0 || floats.Sum(h2) <= 0 {
		return 1
	}
	m1, m2 := histMat(h1), histMat(h2)
	defer m1.Close()
	defer m2.Close()
	return float64(gocv.CompareHist(m1, m2, gocv.HistCmpBhattacharya))
}

// histMat copies h into a column of 32-bit floats, the layout
// CompareHist wants.
func histMat(h []float64) gocv.Mat {
	m := gocv.NewMatWithSize(len(h), 1, gocv.MatTypeCV32F)
	for i, v := range h {
		m.SetFloatAt(i, 0, float32(v))
	}
	return m
}
