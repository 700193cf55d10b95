// Package preprocess gets a raw photograph ready for the locators:
// find the eye, shrink it to a workable size, and clean it up.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ErrCascade is returned when a cascade classifier file can't be
// loaded.
var ErrCascade = errors.New("preprocess: cannot load cascade")

// A Detector proposes rectangles that might contain an eye. An empty
// result is fine, Crop falls back to the middle of the picture.
type Detector interface {
	Detect(im gocv.Mat) []image.Rectangle
}

// CascadeDetector finds eyes with a Haar cascade, typically OpenCV's
// haarcascade_eye_tree_eyeglasses.xml.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
}

// NewCascadeDetector loads the cascade at path. Close it when done.
func NewCascadeDetector(path string) (*CascadeDetector, error) {
	c := gocv.NewCascadeClassifier()
	if !c.Load(path) {
		c.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascade, path)
	}
	return &CascadeDetector{classifier: c}, nil
}

func (d *CascadeDetector) Detect(im gocv.Mat) []image.Rectangle {
	return d.classifier.DetectMultiScaleWithParams(im, 1.1, 3, 0, image.Point{}, image.Point{im.Cols(), im.Rows()})
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}

// Serialize wraps d so that no two Detect calls run at the same time.
// OpenCV doesn't promise that a cascade classifier can be shared
// between threads.
func Serialize(d Detector) Detector {
	if d == nil {
		return nil
	}
	return &serialDetector{d: d}
}

type serialDetector struct {
	mu sync.Mutex
	d  Detector
}

func (s *serialDetector) Detect(im gocv.Mat) []image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Detect(im)
}

// DefaultMinEyeWidth is the narrowest detection Crop will trust.
// Anything smaller is more likely a nostril than an eye.
const DefaultMinEyeWidth = 120

// Crop picks the region of im to work on. A picture that is already
// an eye close-up is kept whole. Otherwise it's the biggest detection
// if there's a convincing one, and a centered square if not. detected
// reports whether a detection was used. d may be nil.
func Crop(im gocv.Mat, d Detector, minWidth int) (roi image.Rectangle, detected bool) {
	bounds := image.Rect(0, 0, im.Cols(), im.Rows())
	if !NeedsCrop(im) {
		return bounds, false
	}
	if d != nil {
		var biggest image.Rectangle
		for _, r := range d.Detect(im) {
			if area(r) > area(biggest) {
				biggest = r
			}
		}
		biggest = biggest.Intersect(bounds)
		if !biggest.Empty() && biggest.Dx() >= minWidth {
			return biggest, true
		}
	}
	return CenterSquare(bounds.Size()), false
}

// CenterSquare returns the largest square centered in an image of the
// given size.
func CenterSquare(size image.Point) image.Rectangle {
	if size.X > size.Y {
		x := size.X/2 - size.Y/2
		return image.Rect(x, 0, x+size.Y, size.Y)
	}
	y := size.Y/2 - size.X/2
	return image.Rect(0, y, size.X, y+size.X)
}

// closeUpBlue is the fraction of blue-hued pixels from which a
// picture counts as an eye close-up.
const closeUpBlue = 0.03

// NeedsCrop guesses whether im shows more than just an eye.
//
// Eye close-ups from visible light datasets have a fair share of
// blue-hued pixels, while faces and wider shots are mostly skin, hair
// and background. So we measure how much of the picture sits in the
// blue band of the hue wheel (90-119 in OpenCV's halved degrees),
// leaving out pixels too dark or too bright for their hue to mean
// anything. Grayscale images have no hue and always need cropping.
func NeedsCrop(im gocv.Mat) bool {
	if im.Empty() || im.Channels() != 3 {
		return true
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(im, &hsv, gocv.ColorBGRToHSV)
	chans := gocv.Split(hsv)
	defer func() {
		for _, c := range chans {
			c.Close()
		}
	}()
	hue := chans[0]

	dark := gocv.NewMat()
	defer dark.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(180, 255, 30, 0), &dark)
	glare := reflectionMask(im, ReflectionSimple)
	defer glare.Close()
	blue := gocv.NewMat()
	defer blue.Close()
	gocv.InRangeWithScalar(hue, gocv.NewScalar(90, 0, 0, 0), gocv.NewScalar(120, 0, 0, 0), &blue)

	// Count everything but the blue-hued pixels that are dark or
	// glare.
	keep := gocv.NewMat()
	defer keep.Close()
	gocv.BitwiseOr(dark, glare, &keep)
	gocv.BitwiseAnd(keep, blue, &keep)
	gocv.BitwiseNot(keep, &keep)

	hist := gocv.NewMat()
	defer hist.Close()
	gocv.CalcHist([]gocv.Mat{hue}, []int{0}, keep, &hist, []int{6}, []float64{0, 180}, false)
	return float64(hist.GetFloatAt(3, 0))/float64(im.Total()) < closeUpBlue
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
