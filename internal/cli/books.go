package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pixlkit/pixl/pkg/api"
	"github.com/pixlkit/pixl/pkg/draw"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// newCommand creates the "new" command.
func (c *CLI) newCommand() *cobra.Command {
	var width, height, frames int

	cmd := &cobra.Command{
		Use:   "new <filename>",
		Short: "Create an empty book",
		Long: `Create a book of fully transparent frames.

The filename must end in .pxl. An existing book of the same name is
replaced.`,
		Example: `  pixl new sprite.pxl --width 32 --height 32 --frames 4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := c.openBooks(ctx)
			if err != nil {
				return err
			}
			defer bs.Close()

			loc, err := bs.Create(ctx, args[0], width, height, frames)
			if err != nil {
				return err
			}
			printSuccess("Created %s", StyleValue.Render(args[0]))
			printDetail("%dx%d, %d frame(s)", width, height, frames)
			printFile(loc)
			printNextStep("Draw on it", "pixl draw "+args[0]+" ops.json")
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 16, "frame width in pixels")
	cmd.Flags().IntVar(&height, "height", 16, "frame height in pixels")
	cmd.Flags().IntVar(&frames, "frames", 1, "number of frames")
	return cmd
}

// infoCommand creates the "info" command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "info <filename>",
		Short:             "Show a book's dimensions and frames",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeBooks,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := c.openBooks(ctx)
			if err != nil {
				return err
			}
			defer bs.Close()

			b, err := bs.Get(ctx, args[0])
			if err != nil {
				return err
			}

			opaque := 0
			for _, f := range b.Frames {
				for i := 3; i < len(f.Pix); i += 4 {
					if f.Pix[i] != 0 {
						opaque++
					}
				}
			}

			fmt.Println(StyleTitle.Render(b.Filename))
			printKeyValue("Size", fmt.Sprintf("%dx%d", b.Width, b.Height))
			printKeyValue("Frames", strconv.Itoa(b.FrameCount()))
			printKeyValue("Painted", fmt.Sprintf("%d pixel(s)", opaque))
			return nil
		},
	}
}

// listCommand creates the "list" command.
func (c *CLI) listCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List books in the base path",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bs, err := c.openBooks(ctx)
			if err != nil {
				return err
			}
			defer bs.Close()

			infos, err := bs.List(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(api.Books{Books: infos})
			}
			if len(infos) == 0 {
				printInfo("No books yet")
				printNextStep("Create one", "pixl new sprite.pxl")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), bookTable(infos, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")
	return cmd
}

// drawCommand creates the "draw" command.
func (c *CLI) drawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "draw <filename> <ops.json|->",
		Short: "Apply drawing operations to a book",
		Long: `Apply a JSON batch of drawing operations and save the book.

The input is either an array of operations or an object with an
"operations" array, as accepted by PUT /books/{filename}. Operations run
in order; the first failing one aborts the batch and nothing is saved.`,
		Example: `  pixl draw sprite.pxl ops.json
  echo '[{"type":"draw_pixel","frame":0,"x":1,"y":1,"color":"#ff0000"}]' | pixl draw sprite.pxl -`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: c.completeBooks,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			ops, err := readOperations(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			logger.Debug("Parsed operations", "count", len(ops))

			bs, err := c.openBooks(ctx)
			if err != nil {
				return err
			}
			defer bs.Close()

			prog := newProgress(logger)
			n, err := bs.Update(ctx, args[0], ops)
			if err != nil {
				return err
			}
			prog.done("Applied operations", "book", args[0], "count", n)
			return nil
		},
	}
}

// readOperations reads a batch from path, or from stdin when path is "-".
func readOperations(stdin io.Reader, path string) (draw.Batch, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "read operations")
	}

	var probe json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "operations are not valid JSON")
	}
	if len(probe) > 0 && probe[0] == '{' {
		var req api.UpdateBook
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return req.Operations, nil
	}
	return draw.ParseBatch(data)
}
