// Package config holds every tunable knob of the segmentation
// pipeline, and loads overrides from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted for a config file
// when none is given on the command line.
const EnvPath = "IRIS_CONFIG"

// Strategies are the accepted values of Config.Strategy.
const (
	StrategyContour = "contour"
	StrategyHough   = "hough"
)

// Reflection modes are the accepted values of
// Preprocess.ReflectionMode.
const (
	ReflectionSimple   = "simple"
	ReflectionAdaptive = "adaptive"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type Config struct {
	// Strategy picks the circle locator, contour or hough.
	Strategy string `yaml:"strategy"`

	Preprocess Preprocess `yaml:"preprocess"`
	Contour    Contour    `yaml:"contour"`
	Hough      Hough      `yaml:"hough"`
	Encoding   Encoding   `yaml:"encoding"`
	Output     Output     `yaml:"output"`
	Log        Log        `yaml:"log"`
}

type Preprocess struct {
	// Cascade is the path to a Haar cascade for eye detection. Empty
	// means always use the center of the picture.
	Cascade     string  `yaml:"cascade"`
	MinEyeWidth int     `yaml:"min_eye_width"`
	FinalSize   int     `yaml:"final_size"`
	ClipPercent float64 `yaml:"clip_percent"`
	// Reflections overrides whether specular highlights get painted
	// over. Unset means the strategy's default.
	Reflections *bool `yaml:"reflections,omitempty"`
	// ReflectionMode is how highlights are found before painting
	// them over: simple (close to the brightest pixel) or adaptive
	// (brighter than their neighborhood in the blue channel).
	ReflectionMode string `yaml:"reflection_mode"`
}

type Contour struct {
	Thresholds      []float64 `yaml:"thresholds"`
	Equalize        bool      `yaml:"equalize"`
	PosterizeLevels int       `yaml:"posterize_levels"`
	Limbus          Range     `yaml:"limbus"`
	Pupil           Range     `yaml:"pupil"`
	PupilMaxMean    float64   `yaml:"pupil_max_mean"`
	PupilMaxOffset  float64   `yaml:"pupil_max_offset"`
	RadiusRatio     Range     `yaml:"radius_ratio"`
}

type Hough struct {
	Seed         int64   `yaml:"seed"`
	LimbusFactor float64 `yaml:"limbus_factor"`
	CenterStart  float64 `yaml:"center_start"`
	CenterStep   float64 `yaml:"center_step"`
	CenterMax    float64 `yaml:"center_max"`
}

type Encoding struct {
	Zones int `yaml:"zones"`
}

type Output struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration the pipeline was tuned with.
func Default() Config {
	return Config{
		Strategy: StrategyContour,
		Preprocess: Preprocess{
			MinEyeWidth:    120,
			FinalSize:      250,
			ClipPercent:    0.5,
			ReflectionMode: ReflectionSimple,
		},
		Contour: Contour{
			Thresholds:      []float64{0.05, 0.10, 0.15, 0.20, 0.25, 0.30, 0.35, 0.40, 0.45, 0.50, 0.55},
			Equalize:        true,
			PosterizeLevels: 18,
			Limbus:          Range{0.15, 0.5},
			Pupil:           Range{0.1, 0.2},
			PupilMaxMean:    40,
			PupilMaxOffset:  0.05,
			RadiusRatio:     Range{3, 5.5},
		},
		Hough: Hough{
			Seed:         1,
			LimbusFactor: 1.5,
			CenterStart:  0.3,
			CenterStep:   0.05,
			CenterMax:    0.7,
		},
		Encoding: Encoding{Zones: 4},
		Output:   Output{Dir: "out", Format: "png"},
		Log:      Log{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults. Keys missing
// from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	bs, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve loads path if it's set, then the file named by $IRIS_CONFIG,
// and otherwise returns the defaults.
func Resolve(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects configurations the pipeline can't run with.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Strategy {
	case StrategyContour, StrategyHough:
	default:
		bad("strategy %q, want %q or %q", c.Strategy, StrategyContour, StrategyHough)
	}
	switch c.Preprocess.ReflectionMode {
	case ReflectionSimple, ReflectionAdaptive:
	default:
		bad("preprocess.reflection_mode %q, want %q or %q", c.Preprocess.ReflectionMode, ReflectionSimple, ReflectionAdaptive)
	}
	if c.Preprocess.FinalSize <= 0 {
		bad("preprocess.final_size %d must be positive", c.Preprocess.FinalSize)
	}
	if c.Preprocess.ClipPercent < 0 || c.Preprocess.ClipPercent >= 50 {
		bad("preprocess.clip_percent %v out of [0, 50)", c.Preprocess.ClipPercent)
	}
	if len(c.Contour.Thresholds) == 0 {
		bad("contour.thresholds is empty")
	}
	if c.Contour.PosterizeLevels < 2 {
		bad("contour.posterize_levels %d must be at least 2", c.Contour.PosterizeLevels)
	}
	for _, r := range []struct {
		name string
		Range
	}{
		{"contour.limbus", c.Contour.Limbus},
		{"contour.pupil", c.Contour.Pupil},
		{"contour.radius_ratio", c.Contour.RadiusRatio},
	} {
		if r.Min < 0 || r.Min > r.Max {
			bad("%s [%v, %v] is not a range", r.name, r.Min, r.Max)
		}
	}
	if c.Hough.CenterStep <= 0 || c.Hough.CenterStart > c.Hough.CenterMax {
		bad("hough center retry %v..%v step %v never terminates", c.Hough.CenterStart, c.Hough.CenterMax, c.Hough.CenterStep)
	}
	if c.Encoding.Zones <= 0 {
		bad("encoding.zones %d must be positive", c.Encoding.Zones)
	}
	return errors.Join(errs...)
}

// YAML renders the configuration the way Load reads it.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
