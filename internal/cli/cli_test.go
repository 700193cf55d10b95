package cli

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.universe.tf/iris/internal/artifact"
	"go.universe.tf/iris/internal/config"
	"go.universe.tf/iris/internal/raster"
	"go.universe.tf/iris/internal/segment"
)

// run executes the tool with args, and returns its exit code and
// standard output.
func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return GetExitCode(err), out.String()
}

func writePNG(t *testing.T, dir string, im image.Image) string {
	t.Helper()
	path := filepath.Join(dir, "eye.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, im))
	require.NoError(t, f.Close())
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "iris", cmd.Use)
	for _, name := range []string{"segment", "compare", "config"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, name := range []string{"config", "log-level"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not a png"), 0o644))

	tests := map[string][]string{
		"no images":        {"segment"},
		"missing image":    {"segment", filepath.Join(dir, "nope.jpg")},
		"not an image":     {"segment", "--out", dir, junk},
		"bad format":       {"segment", "--format", "gif", junk},
		"bad strategy":     {"segment", "--strategy", "guess", junk},
		"unknown flag":     {"segment", "--colour", junk},
		"compare one":      {"compare", junk},
		"compare zones":    {"compare", "--zones", "-3", junk, junk},
		"config args":      {"config", "extra"},
		"missing config":   {"--config", filepath.Join(dir, "nope.yaml"), "config"},
		"bad log level":    {"--log-level", "shouty", "config"},
		"missing cascade":  {"--config", writeConfig(t, dir, "preprocess:\n  cascade: /nonexistent.xml\n"), "segment", junk},
		"config not valid": {"--config", writeConfig(t, dir, "encoding:\n  zones: 0\n"), "config"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, out := run(t, args...)
			assert.Equal(t, ExitCommandError, code, out)
		})
	}
}

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	f, err := os.CreateTemp(dir, "*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestConfigCommand(t *testing.T) {
	code, out := run(t, "config")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "strategy: contour")

	path := writeConfig(t, t.TempDir(), "strategy: hough\nhough:\n  seed: 9\n")
	code, out = run(t, "--config", path, "--log-level", "debug", "config")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "strategy: hough")
	assert.Contains(t, out, "seed: 9")
	assert.Contains(t, out, "level: debug")
}

func TestConfigFromEnvironment(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "output:\n  format: bmp\n")
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"config"})
	cmd.SetOut(&out)
	t.Setenv(config.EnvPath, path)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "format: bmp")
}

func TestSegmentFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, image.NewGray(image.Rect(0, 0, 80, 80)))

	code, out := run(t, "segment", "--out", filepath.Join(dir, "out"), path)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "segmentation failed")
	_, err := os.Stat(filepath.Join(dir, "out", "eye"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// textured builds a fake segmentation result with a fully visible,
// busy polar image.
func textured(seed int) segment.NormalizedIris {
	norm := raster.NewBGR(64, 16)
	for y := 0; y < norm.Height; y++ {
		for x := 0; x < norm.Width; x++ {
			v := uint8((x*7 + y*13 + seed*31) % 256)
			norm.Set(x, y, [3]uint8{v, v, v})
		}
	}
	return segment.NormalizedIris{
		Eye:            raster.NewBGR(8, 8),
		EyeMask:        raster.NewGray(8, 8),
		Normalized:     norm,
		NormalizedMask: raster.NewGrayFilled(64, 16, 255),
	}
}

func TestCompareFromArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := artifact.Save(dir, "left.jpg", textured(0), "png")
	require.NoError(t, err)
	_, err = artifact.Save(dir, "right.jpg", textured(5), "png")
	require.NoError(t, err)

	code, out := run(t, "compare", "--from", dir, "left.jpg", "left.jpg")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "lbp distance:          0.000000")
	assert.Contains(t, out, "spatiogram similarity: 1.000000")

	code, out = run(t, "compare", "--from", dir, "left.jpg", "right.jpg")
	assert.Equal(t, ExitSuccess, code, out)

	code, out = run(t, "compare", "--from", dir, "left.jpg", "missing.jpg")
	assert.Equal(t, ExitCommandError, code, out)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))

	inner := errors.New("inner")
	err := WrapExitError(ExitCommandError, "outer", inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, "outer: inner", err.Error())
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}
