package location

import (
	"image"
	"math"
)

// Point is a real-valued 2D point.
type Point struct {
	X, Y float64
}

func pointsOf(contour []image.Point) []Point {
	ret := make([]Point, len(contour))
	for i, p := range contour {
		ret[i] = Point{float64(p.X), float64(p.Y)}
	}
	return ret
}

// maxNewtonSteps bounds the root search in FitTaubin.
const maxNewtonSteps = 99

// FitTaubin fits a circle to pts using Taubin's algebraic method.
//
// This is "Estimation of planar curves, surfaces and nonplanar space
// curves defined by implicit equations", Taubin 1991, in the Newton
// flavour popularised by Chernov. The fit never fails: bad inputs
// produce a circle with a silly (possibly NaN) radius, and it's up to
// the caller to range-check the result. An empty input returns the
// zero Circle.
func FitTaubin(pts []Point) Circle {
	if len(pts) == 0 {
		return Circle{}
	}
	n := float64(len(pts))

	// Work relative to the centroid, it keeps the moments small and
	// the polynomial well conditioned.
	var meanX, meanY float64
	for _, p := range pts {
		meanX += p.X
		meanY += p.Y
	}
	meanX /= n
	meanY /= n

	var mxx, myy, mxy, mxz, myz, mzz float64
	for _, p := range pts {
		xi := p.X - meanX
		yi := p.Y - meanY
		zi := xi*xi + yi*yi
		mxy += xi * yi
		mxx += xi * xi
		myy += yi * yi
		mxz += xi * zi
		myz += yi * zi
		mzz += zi * zi
	}
	mxx /= n
	myy /= n
	mxy /= n
	mxz /= n
	myz /= n
	mzz /= n

	// Coefficients of the characteristic polynomial.
	mz := mxx + myy
	covXY := mxx*myy - mxy*mxy
	varZ := mzz - mz*mz
	a3 := 4 * mz
	a2 := -3*mz*mz - mzz
	a1 := varZ*mz + 4*covXY*mz - mxz*mxz - myz*myz
	a0 := mxz*(mxz*myy-myz*mxy) + myz*(myz*mxx-mxz*mxy) - varZ*covXY
	a22 := a2 + a2
	a33 := a3 + a3 + a3

	// Newton's method, starting at x=0. The polynomial is monotone
	// between 0 and the root we want, so this converges unless the
	// points are degenerate (all collinear, say).
	x, y := 0.0, a0
	for i := 0; i < maxNewtonSteps; i++ {
		dy := a1 + x*(a22+a33*x)
		xnew := x - y/dy
		if xnew == x || math.IsNaN(xnew) || math.IsInf(xnew, 0) {
			break
		}
		ynew := a0 + xnew*(a1+xnew*(a2+xnew*a3))
		if math.Abs(ynew) >= math.Abs(y) {
			break
		}
		x, y = xnew, ynew
	}

	det := x*x - x*mz + covXY
	xc := (mxz*(myy-x) - myz*mxy) / det / 2
	yc := (myz*(mxx-x) - mxz*mxy) / det / 2

	return Circle{
		X: xc + meanX,
		Y: yc + meanY,
		R: math.Sqrt(xc*xc + yc*yc + mz),
	}
}
