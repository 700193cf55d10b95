// Package raster holds plain Go pixel buffers, and converts them to
// and from gocv Mats and image.Image.
//
// OpenCV is great at filtering whole images, but terrible at "look at
// this one pixel" work: every GetUCharAt is a cgo call. The
// algorithms that walk pixels one at a time (posterization, scoring,
// unwrapping, masks) work on these buffers instead.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// ErrMatType is returned when a Mat doesn't have the depth or channel
// count a conversion expects.
var ErrMatType = errors.New("raster: unsupported mat type")

// Gray is an 8-bit single channel image, stored row-major.
type Gray struct {
	Pix           []uint8
	Width, Height int
}

// NewGray returns an all-black w x h image.
func NewGray(w, h int) *Gray {
	return &Gray{Pix: make([]uint8, w*h), Width: w, Height: h}
}

// NewGrayFilled returns a w x h image with every pixel set to v.
func NewGrayFilled(w, h int, v uint8) *Gray {
	g := NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func (g *Gray) Bounds() image.Rectangle { return image.Rect(0, 0, g.Width, g.Height) }

// In reports whether (x, y) is a pixel of g.
func (g *Gray) In(x, y int) bool { return x >= 0 && y >= 0 && x < g.Width && y < g.Height }

func (g *Gray) At(x, y int) uint8 { return g.Pix[y*g.Width+x] }

func (g *Gray) Set(x, y int, v uint8) { g.Pix[y*g.Width+x] = v }

// Clone returns a deep copy of g.
func (g *Gray) Clone() *Gray {
	ret := &Gray{Pix: make([]uint8, len(g.Pix)), Width: g.Width, Height: g.Height}
	copy(ret.Pix, g.Pix)
	return ret
}

// SubImage copies the part of g inside r, clipped to g's bounds.
func (g *Gray) SubImage(r image.Rectangle) *Gray {
	r = r.Intersect(g.Bounds())
	ret := NewGray(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		copy(ret.Pix[y*ret.Width:(y+1)*ret.Width], g.Pix[(y+r.Min.Y)*g.Width+r.Min.X:])
	}
	return ret
}

// Mat copies g into a new CV_8UC1 Mat. The caller owns the Mat.
func (g *Gray) Mat() (gocv.Mat, error) {
	buf := make([]byte, len(g.Pix))
	copy(buf, g.Pix)
	return gocv.NewMatFromBytes(g.Height, g.Width, gocv.MatTypeCV8U, buf)
}

// Image converts g to a standard library image.
func (g *Gray) Image() *image.Gray {
	ret := image.NewGray(g.Bounds())
	copy(ret.Pix, g.Pix)
	return ret
}

// GrayFromMat copies a single channel 8-bit Mat into a Gray.
func GrayFromMat(m gocv.Mat) (*Gray, error) {
	if m.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("%w: want CV_8UC1, got %v", ErrMatType, m.Type())
	}
	pix, err := matBytes(m)
	if err != nil {
		return nil, err
	}
	return &Gray{Pix: pix, Width: m.Cols(), Height: m.Rows()}, nil
}

// GrayFromImage converts any image.Image to Gray, using the standard
// library's luminance conversion.
func GrayFromImage(im image.Image) *Gray {
	b := im.Bounds()
	ret := NewGray(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			ret.Set(x, y, color.GrayModel.Convert(im.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y)
		}
	}
	return ret
}

// BGR is an 8-bit three channel image in OpenCV's channel order.
type BGR struct {
	Pix           []uint8
	Width, Height int
}

// NewBGR returns an all-black w x h image.
func NewBGR(w, h int) *BGR {
	return &BGR{Pix: make([]uint8, 3*w*h), Width: w, Height: h}
}

func (b *BGR) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

func (b *BGR) In(x, y int) bool { return x >= 0 && y >= 0 && x < b.Width && y < b.Height }

// At returns the (blue, green, red) triple at (x, y).
func (b *BGR) At(x, y int) [3]uint8 {
	i := 3 * (y*b.Width + x)
	return [3]uint8{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

func (b *BGR) Set(x, y int, v [3]uint8) {
	i := 3 * (y*b.Width + x)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = v[0], v[1], v[2]
}

// Channel extracts channel c (0 blue, 1 green, 2 red).
func (b *BGR) Channel(c int) *Gray {
	ret := NewGray(b.Width, b.Height)
	for i := range ret.Pix {
		ret.Pix[i] = b.Pix[3*i+c]
	}
	return ret
}

// Gray converts b to luminance with OpenCV's BGR2GRAY weights.
func (b *BGR) Gray() *Gray {
	ret := NewGray(b.Width, b.Height)
	for i := range ret.Pix {
		bl, gr, rd := float64(b.Pix[3*i]), float64(b.Pix[3*i+1]), float64(b.Pix[3*i+2])
		ret.Pix[i] = uint8(0.114*bl + 0.587*gr + 0.299*rd + 0.5)
	}
	return ret
}

// Mat copies b into a new CV_8UC3 Mat. The caller owns the Mat.
func (b *BGR) Mat() (gocv.Mat, error) {
	buf := make([]byte, len(b.Pix))
	copy(buf, b.Pix)
	return gocv.NewMatFromBytes(b.Height, b.Width, gocv.MatTypeCV8UC3, buf)
}

// Image converts b to a standard library RGBA image.
func (b *BGR) Image() *image.RGBA {
	ret := image.NewRGBA(b.Bounds())
	for i := 0; i < b.Width*b.Height; i++ {
		ret.Pix[4*i] = b.Pix[3*i+2]
		ret.Pix[4*i+1] = b.Pix[3*i+1]
		ret.Pix[4*i+2] = b.Pix[3*i]
		ret.Pix[4*i+3] = 0xff
	}
	return ret
}

// BGRFromMat copies an 8-bit Mat into a BGR. Single channel Mats are
// expanded to three identical channels.
func BGRFromMat(m gocv.Mat) (*BGR, error) {
	switch m.Type() {
	case gocv.MatTypeCV8UC3:
		pix, err := matBytes(m)
		if err != nil {
			return nil, err
		}
		return &BGR{Pix: pix, Width: m.Cols(), Height: m.Rows()}, nil
	case gocv.MatTypeCV8U:
		g, err := GrayFromMat(m)
		if err != nil {
			return nil, err
		}
		ret := NewBGR(g.Width, g.Height)
		for i, v := range g.Pix {
			ret.Pix[3*i], ret.Pix[3*i+1], ret.Pix[3*i+2] = v, v, v
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("%w: want CV_8UC3 or CV_8UC1, got %v", ErrMatType, m.Type())
	}
}

// BGRFromImage converts any image.Image to BGR.
func BGRFromImage(im image.Image) *BGR {
	b := im.Bounds()
	ret := NewBGR(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(im.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			ret.Set(x, y, [3]uint8{c.B, c.G, c.R})
		}
	}
	return ret
}

// matBytes returns a copy of m's pixel data. Regions of a larger Mat
// aren't continuous in memory, so those get cloned first.
func matBytes(m gocv.Mat) ([]byte, error) {
	if m.Empty() {
		return nil, fmt.Errorf("%w: empty mat", ErrMatType)
	}
	if !m.IsContinuous() {
		c := m.Clone()
		defer c.Close()
		m = c
	}
	src := m.ToBytes()
	ret := make([]byte, len(src))
	copy(ret, src)
	return ret, nil
}
