package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.universe.tf/iris/internal/artifact"
	"go.universe.tf/iris/internal/encoding"
	"go.universe.tf/iris/internal/raster"
	"go.universe.tf/iris/internal/segment"
)

type compareOptions struct {
	zones    int
	strategy string
	from     string
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <imageA> <imageB>",
		Short: "Compare the irises of two eye images",
		Long: `Segment both images, encode the normalized irises, and print the LBP
distance (0 for identical textures) and the spatiogram similarity (1 for
identical textures).

With --from, the normalized irises and masks a previous "segment --out"
run wrote to that directory are read back instead, and nothing is
segmented again.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(rootOpts, opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(&opts.zones, "zones", 0, "number of LBP zones (default from config)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "circle search strategy, contour or hough (default from config)")
	cmd.Flags().StringVar(&opts.from, "from", "", "read normalized irises saved by segment from this directory")

	return cmd
}

// encoded is one side of a comparison.
type encoded struct {
	lbp        encoding.LBP
	spatiogram encoding.Spatiogram
}

func runCompare(rootOpts *RootOptions, opts *compareOptions, cmd *cobra.Command, a, b string) error {
	cfg := rootOpts.Config
	if opts.zones != 0 {
		cfg.Encoding.Zones = opts.zones
	}
	if opts.strategy != "" {
		cfg.Strategy = opts.strategy
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	var encs [2]encoded
	if opts.from != "" {
		if !artifact.Supported(cfg.Output.Format) {
			return NewExitError(ExitCommandError, fmt.Sprintf("unsupported output format %q", cfg.Output.Format))
		}
		for i, path := range []string{a, b} {
			norm, mask, err := artifact.LoadNormalized(opts.from, path, cfg.Output.Format)
			if err != nil {
				return WrapExitError(ExitCommandError, path, err)
			}
			if encs[i], err = encodeNormalized(path, norm.Gray(), mask, cfg.Encoding.Zones); err != nil {
				return err
			}
		}
	} else {
		seg, cleanup, err := rootOpts.segmentator(cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		for i, path := range []string{a, b} {
			if encs[i], err = encode(seg, path, cfg.Encoding.Zones); err != nil {
				return err
			}
		}
	}

	dist, err := encoding.CompareLBP(encs[0].lbp, encs[1].lbp)
	if err != nil {
		return WrapExitError(ExitFailure, "comparing LBP", err)
	}
	sim := encoding.CompareSpatiogram(encs[0].spatiogram, encs[1].spatiogram)

	fmt.Fprintf(cmd.OutOrStdout(), "lbp distance:          %.6f\n", dist)
	fmt.Fprintf(cmd.OutOrStdout(), "spatiogram similarity: %.6f\n", sim)
	return nil
}

func encode(seg *segment.Segmentator, path string, zones int) (encoded, error) {
	im, err := readImage(path)
	if err != nil {
		return encoded{}, err
	}
	defer im.Close()

	res, err := seg.Segment(im)
	if err != nil {
		return encoded{}, WrapExitError(ExitFailure, path, err)
	}
	return encodeNormalized(path, res.Normalized.Normalized.Gray(), res.Normalized.NormalizedMask, zones)
}

func encodeNormalized(path string, gray, mask *raster.Gray, zones int) (encoded, error) {
	lbp, err := encoding.EncodeLBP(gray, mask, zones)
	if err != nil {
		return encoded{}, WrapExitError(ExitFailure, path+": LBP encoding", err)
	}
	sp, err := encoding.EncodeSpatiogram(gray, mask)
	if err != nil {
		return encoded{}, WrapExitError(ExitFailure, path+": spatiogram encoding", err)
	}
	return encoded{lbp: lbp, spatiogram: sp}, nil
}
