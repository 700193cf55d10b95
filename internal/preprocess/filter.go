package preprocess

import (
	"image"

	"gocv.io/x/gocv"
)

// ReflectionMode selects how FilterReflections finds highlights.
type ReflectionMode string

const (
	// ReflectionSimple takes everything within 7% of the brightest
	// pixel.
	ReflectionSimple ReflectionMode = "simple"
	// ReflectionAdaptive takes pixels clearly brighter than their
	// immediate neighborhood in the blue channel.
	ReflectionAdaptive ReflectionMode = "adaptive"
)

// FilterReflections paints over specular highlights in a BGR image.
//
// Camera lights reflect off the cornea as small, nearly white blobs,
// often right on the pupil boundary. Those make beautiful false edges.
// We find them according to mode, grow them a little to catch the
// blooming around them, and let OpenCV's inpainting fill them in from
// the surroundings. The caller owns the returned Mat.
func FilterReflections(im gocv.Mat, mode ReflectionMode) gocv.Mat {
	mask := reflectionMask(im, mode)
	defer mask.Close()

	ret := gocv.NewMat()
	gocv.Inpaint(im, mask, &ret, 5, gocv.Telea)
	return ret
}

// reflectionMask returns a mask of im's highlights, dilated by a 7x7
// square. Unknown modes are treated as ReflectionSimple.
func reflectionMask(im gocv.Mat, mode ReflectionMode) gocv.Mat {
	mask := gocv.NewMat()
	if mode == ReflectionAdaptive {
		blue := firstChannel(im)
		defer blue.Close()
		gocv.AdaptiveThreshold(blue, &mask, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 3, -10)
	} else {
		gray := grayOf(im)
		defer gray.Close()
		_, brightest, _, _ := gocv.MinMaxLoc(gray)
		gocv.Threshold(gray, &mask, brightest*0.93, 255, gocv.ThresholdBinary)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{7, 7})
	defer kernel.Close()
	gocv.Dilate(mask, &mask, kernel)
	return mask
}

// grayOf returns a grayscale copy of im.
func grayOf(im gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if im.Channels() > 1 {
		gocv.CvtColor(im, &gray, gocv.ColorBGRToGray)
	} else {
		im.CopyTo(&gray)
	}
	return gray
}

// firstChannel returns a copy of im's first channel, blue for BGR.
func firstChannel(im gocv.Mat) gocv.Mat {
	if im.Channels() == 1 {
		return im.Clone()
	}
	chans := gocv.Split(im)
	for _, c := range chans[1:] {
		c.Close()
	}
	return chans[0]
}

// DefaultClipPercent is how much of the histogram AutoContrast throws
// away at each end.
const DefaultClipPercent = 0.5

// AutoContrast stretches a grayscale image's histogram to the full
// 0-255 range, ignoring the darkest and brightest clip percent of
// pixels so that a few outliers don't defeat the stretch. The caller
// owns the returned Mat.
func AutoContrast(gray gocv.Mat, clip float64) gocv.Mat {
	hist := gocv.NewMat()
	defer hist.Close()
	noMask := gocv.NewMat()
	defer noMask.Close()
	gocv.CalcHist([]gocv.Mat{gray}, []int{0}, noMask, &hist, []int{256}, []float64{0, 256}, false)

	var acc [256]float64
	acc[0] = float64(hist.GetFloatAt(0, 0))
	for i := 1; i < 256; i++ {
		acc[i] = acc[i-1] + float64(hist.GetFloatAt(i, 0))
	}
	total := acc[255]
	cut := total / 100 * clip

	lo := 0
	for lo < 255 && acc[lo] < cut {
		lo++
	}
	hi := 255
	for hi > 0 && acc[hi] >= total-cut {
		hi--
	}

	ret := gocv.NewMat()
	if hi <= lo {
		// Flat image, nothing to stretch.
		gray.CopyTo(&ret)
		return ret
	}
	alpha := 255 / float64(hi-lo)
	beta := -float64(lo) * alpha
	gocv.ConvertScaleAbs(gray, &ret, alpha, beta)
	return ret
}
