package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.universe.tf/iris/internal/artifact"
	"go.universe.tf/iris/internal/config"
)

type segmentOptions struct {
	out      string
	strategy string
	format   string
}

// NewSegmentCommand creates the segment command.
func NewSegmentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &segmentOptions{}

	cmd := &cobra.Command{
		Use:   "segment <image>...",
		Short: "Segment eye images and save the normalized irises",
		Long: `Segment each image: find the pupil and limbus, print them, and write the
normalized iris, its mask, the cropped eye and the eye mask under the output
directory.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegment(rootOpts, opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "circle search strategy, contour or hough (default from config)")
	cmd.Flags().StringVar(&opts.format, "format", "", "artifact image format, png, bmp or tiff (default from config)")

	return cmd
}

func runSegment(rootOpts *RootOptions, opts *segmentOptions, cmd *cobra.Command, paths []string) error {
	cfg := rootOpts.Config
	if opts.strategy != "" {
		cfg.Strategy = opts.strategy
	}
	if opts.out != "" {
		cfg.Output.Dir = opts.out
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if err := checkOverrides(cfg); err != nil {
		return err
	}

	seg, cleanup, err := rootOpts.segmentator(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Check every input up front, so that a typo in the last path
	// doesn't waste the time spent on the others.
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return WrapExitError(ExitCommandError, "reading image", err)
		}
	}

	failed := 0
	for _, path := range paths {
		im, err := readImage(path)
		if err != nil {
			return err
		}
		res, err := seg.Segment(im)
		im.Close()
		if err != nil {
			failed++
			rootOpts.Log.Warn("segmentation failed", zap.String("image", path), zap.Error(err))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
			continue
		}

		fs, err := artifact.Save(cfg.Output.Dir, path, res.Normalized, cfg.Output.Format)
		if err != nil {
			return WrapExitError(ExitFailure, "saving artifacts", err)
		}
		rootOpts.Log.Info("segmented", zap.String("image", path), zap.String("dir", fs.Dir))
		fmt.Fprintf(cmd.OutOrStdout(), "%s: pupil %v limbus %v -> %s\n", path, res.Iris.Pupil, res.Iris.Limbus, fs.Dir)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d image(s) could not be segmented", failed, len(paths)))
	}
	return nil
}

// checkOverrides validates config values that flags can override.
func checkOverrides(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	if !artifact.Supported(cfg.Output.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unsupported format %q: want png, bmp or tiff", cfg.Output.Format))
	}
	return nil
}
