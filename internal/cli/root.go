// Package cli implements the iris command line tool.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"go.universe.tf/iris/internal/config"
	"go.universe.tf/iris/internal/logging"
	"go.universe.tf/iris/internal/preprocess"
	"go.universe.tf/iris/internal/segment"
)

// RootOptions holds global flags, and the state every command gets
// once they've been processed.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config config.Config
	Log    *zap.Logger
}

// NewRootCommand creates the root command of the iris tool.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "iris",
		Short: "Iris segmentation and encoding",
		Long: `Locate the pupil and limbus in eye photographs, unwrap the iris into a
normalized polar image with an occlusion mask, and compare iris textures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "bad flags", err)
	})

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (default $"+config.EnvPath+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides the config file")

	cmd.AddCommand(NewSegmentCommand(opts))
	cmd.AddCommand(NewCompareCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// Execute runs the tool with os.Args and returns the process exit
// code.
func Execute() int {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "iris:", err)
	}
	return GetExitCode(err)
}

func (o *RootOptions) setup() error {
	// .env is optional, but a broken one isn't.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, "loading .env", err)
	}

	cfg, err := config.Resolve(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return WrapExitError(ExitCommandError, "setting up logging", err)
	}
	o.Config, o.Log = cfg, log
	return nil
}

// usageArgs makes positional argument errors exit with
// ExitCommandError.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "bad arguments", err)
		}
		return nil
	}
}

// segmentator builds the configured pipeline. The returned cleanup
// releases the eye detector, if any.
func (o *RootOptions) segmentator(cfg config.Config) (*segment.Segmentator, func(), error) {
	opts := []segment.Option{segment.WithLogger(o.Log)}
	cleanup := func() {}
	if cfg.Preprocess.Cascade != "" {
		d, err := preprocess.NewCascadeDetector(cfg.Preprocess.Cascade)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "loading eye detector", err)
		}
		opts = append(opts, segment.WithDetector(d))
		cleanup = func() { d.Close() }
	}
	s, err := segment.New(cfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, WrapExitError(ExitCommandError, "building segmentator", err)
	}
	return s, cleanup, nil
}

// readImage loads a color image from disk.
func readImage(path string) (gocv.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return gocv.Mat{}, WrapExitError(ExitCommandError, "reading image", err)
	}
	im := gocv.IMRead(path, gocv.IMReadColor)
	if im.Empty() {
		im.Close()
		return gocv.Mat{}, NewExitError(ExitCommandError, fmt.Sprintf("%s: not an image", path))
	}
	return im, nil
}
