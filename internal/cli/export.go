package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/render"
)

// exportOpts holds the export command flags.
type exportOpts struct {
	frame   int
	all     bool
	format  string
	scale   int
	raw     bool
	output  string
	noCache bool
}

// exportCommand creates the "export" command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOpts{format: render.FormatPNG, scale: 1}

	cmd := &cobra.Command{
		Use:   "export <filename>",
		Short: "Write frames as PNG or BMP images",
		Long: `Export one frame, or every frame with --all, as an image.

Frames are composited over a checkerboard unless --raw is given, and
scaled up by an integer factor with nearest-neighbour sampling. Encoded
images are cached, so re-exporting unchanged frames is free.`,
		Example: `  pixl export sprite.pxl --frame 2 --scale 8 -o sprite.png
  pixl export sprite.pxl --all --format bmp -o frames/`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeBooks,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.frame, "frame", 0, "frame index to export")
	f.BoolVar(&opts.all, "all", false, "export every frame")
	f.StringVar(&opts.format, "format", opts.format, "image format: png or bmp")
	f.IntVar(&opts.scale, "scale", opts.scale, "integer scale factor")
	f.BoolVar(&opts.raw, "raw", false, "keep transparency instead of compositing over a checkerboard")
	f.StringVarP(&opts.output, "output", "o", "", "output file, or directory with --all")
	f.BoolVar(&opts.noCache, "no-cache", false, "bypass the export cache")
	cmd.MarkFlagsMutuallyExclusive("frame", "all")
	return cmd
}

func (c *CLI) runExport(ctx context.Context, filename string, opts exportOpts) error {
	logger := loggerFromContext(ctx)

	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	ropts := render.Options{Format: format, Scale: opts.scale, Raw: opts.raw}

	bs, err := c.openBooks(ctx)
	if err != nil {
		return err
	}
	defer bs.Close()

	b, err := bs.Get(ctx, filename)
	if err != nil {
		return err
	}

	exporter, closeCache, err := c.newExporter(opts.noCache)
	if err != nil {
		return err
	}
	defer closeCache()

	prog := newProgress(logger)
	if !opts.all {
		data, err := exporter.Export(ctx, b, opts.frame, ropts)
		if err != nil {
			return err
		}
		out := opts.output
		if out == "" {
			out = frameFile(b, opts.frame, format)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		prog.done("Exported frame", "book", b.Filename, "frame", opts.frame, "bytes", len(data))
		printFile(out)
		return nil
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Exporting %d frames...", b.FrameCount()))
	spinner.Start()
	frames, err := exporter.ExportAll(ctx, b, ropts)
	spinner.Stop()
	if err != nil {
		return err
	}

	dir := opts.output
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidPath, err, "create output directory")
	}
	for i, data := range frames {
		out := filepath.Join(dir, frameFile(b, i, format))
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		logger.Debug("Wrote frame", "frame", i, "path", out, "bytes", len(data))
	}
	prog.done("Exported frames", "book", b.Filename, "count", len(frames))
	printFile(dir)
	return nil
}

// frameFile names an exported frame: "sprite-002.png".
func frameFile(b *book.Book, i int, format string) string {
	base := strings.TrimSuffix(filepath.Base(b.Filename), filepath.Ext(b.Filename))
	return fmt.Sprintf("%s-%03d.%s", base, i, format)
}
