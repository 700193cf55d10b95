// Package artifact writes segmentation results to disk, and reads
// them back.
//
// A segmented source image foo.jpg turns into a directory foo/
// holding foo_normalized.<ext> and foo_mask.<ext>, plus the cropped
// eye and its mask as foo_eye.<ext> and foo_eyeMask.<ext>.
package artifact

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"go.universe.tf/iris/internal/raster"
	"go.universe.tf/iris/internal/segment"
)

// ErrUnsupportedFormat is returned for image formats with no codec.
var ErrUnsupportedFormat = errors.New("artifact: unsupported image format")

type codec struct {
	encode func(io.Writer, image.Image) error
	decode func(io.Reader) (image.Image, error)
}

func encodeTIFF(w io.Writer, m image.Image) error {
	return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
}

var codecs = map[string]codec{
	"png":  {png.Encode, png.Decode},
	"bmp":  {bmp.Encode, bmp.Decode},
	"tif":  {encodeTIFF, tiff.Decode},
	"tiff": {encodeTIFF, tiff.Decode},
}

func codecFor(format string) (codec, error) {
	c, ok := codecs[strings.ToLower(strings.TrimPrefix(format, "."))]
	if !ok {
		return codec{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return c, nil
}

// Supported reports whether format, with or without a leading dot,
// has a codec.
func Supported(format string) bool {
	_, err := codecFor(format)
	return err == nil
}

// Files are the paths of the artifacts of one segmented image.
type Files struct {
	Dir            string
	Normalized     string
	NormalizedMask string
	Eye            string
	EyeMask        string
}

// Paths returns where the artifacts of source go under dir.
func Paths(dir, source, format string) Files {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := strings.TrimPrefix(format, ".")
	d := filepath.Join(dir, stem)
	name := func(suffix string) string {
		return filepath.Join(d, stem+"_"+suffix+"."+ext)
	}
	return Files{
		Dir:            d,
		Normalized:     name("normalized"),
		NormalizedMask: name("mask"),
		Eye:            name("eye"),
		EyeMask:        name("eyeMask"),
	}
}

// Save writes all four images of n for source under dir.
func Save(dir, source string, n segment.NormalizedIris, format string) (Files, error) {
	c, err := codecFor(format)
	if err != nil {
		return Files{}, err
	}
	fs := Paths(dir, source, format)
	if err := os.MkdirAll(fs.Dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("creating %s: %w", fs.Dir, err)
	}
	for _, f := range []struct {
		path string
		im   image.Image
	}{
		{fs.Normalized, n.Normalized.Image()},
		{fs.NormalizedMask, n.NormalizedMask.Image()},
		{fs.Eye, n.Eye.Image()},
		{fs.EyeMask, n.EyeMask.Image()},
	} {
		if err := write(f.path, f.im, c); err != nil {
			return Files{}, err
		}
	}
	return fs, nil
}

func write(path string, im image.Image, c codec) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := c.encode(f, im); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

func load(path string) (image.Image, error) {
	c, err := codecFor(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	im, err := c.decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return im, nil
}

// LoadGray reads a mask artifact.
func LoadGray(path string) (*raster.Gray, error) {
	im, err := load(path)
	if err != nil {
		return nil, err
	}
	return raster.GrayFromImage(im), nil
}

// LoadBGR reads a color artifact.
func LoadBGR(path string) (*raster.BGR, error) {
	im, err := load(path)
	if err != nil {
		return nil, err
	}
	return raster.BGRFromImage(im), nil
}

// LoadNormalized reads back the polar image and mask Save wrote for
// source.
func LoadNormalized(dir, source, format string) (*raster.BGR, *raster.Gray, error) {
	fs := Paths(dir, source, format)
	norm, err := LoadBGR(fs.Normalized)
	if err != nil {
		return nil, nil, err
	}
	mask, err := LoadGray(fs.NormalizedMask)
	if err != nil {
		return nil, nil, err
	}
	return norm, mask, nil
}
