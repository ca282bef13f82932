package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/batch"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/dispatch"
)

func newDecodeCommand(a *app) *cobra.Command {
	var thumbnail bool
	cmd := &cobra.Command{
		Use:   "decode [file...]",
		Short: "Decode files into previews",
		Long: `Decode each file with its best-scoring decoder, falling through to the next
candidate when it fails. Text is printed to stdout; images and text are
written to --output-dir when given. Media streams are realized to check that
they can play and are released again. A file that cannot be decoded does not
stop the others; the command fails once all files were tried.

Examples:
  datpeek decode intro.scr
  datpeek decode hero.spr --container sprite-pak --palette game.pal -d previews/
  datpeek decode big.png --thumbnail --thumbnail-size 64 -d previews/
  datpeek decode intro.scr credits.scr`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dispatcher()
			if err != nil {
				return err
			}
			ctx, err := a.decoderContext()
			if err != nil {
				return err
			}

			var errs []error
			for _, path := range args {
				if err := a.decodeFile(cmd.OutOrStdout(), d, ctx, path, thumbnail); err != nil {
					a.logger.Warn("decode failed", "path", path, "error", err)
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&thumbnail, "thumbnail", false, "decode a reduced preview")
	cmd.Flags().Int("thumbnail-size", 128, "longest thumbnail edge in pixels")
	cmd.Flags().StringP("output-dir", "d", "", "write the decoded preview (PNG or text) into this directory")
	bind(cmd.Flags(), "thumbnail-size", "thumbnail.size")
	bind(cmd.Flags(), "output-dir", "output.dir")
	return cmd
}

func (a *app) decodeFile(w io.Writer, d *dispatch.Dispatcher, ctx decoder.Context, path string, thumbnail bool) error {
	s, f, err := openStream(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var res *dispatch.Result
	if thumbnail {
		res, err = d.DecodeThumbnail(s, ctx, a.cfg.Thumbnail.Size)
	} else {
		res, err = d.Decode(s, ctx)
	}
	if res != nil {
		for _, fail := range res.Failures {
			a.logger.Info("candidate failed", "request_id", res.RequestID,
				"decoder", fail.Decoder, "error", fail.Err)
		}
	}
	if err != nil {
		return err
	}
	defer func() { _ = artifact.Release(res.Artifact) }()

	return a.present(w, path, res)
}

// present reports what was decoded and writes the preview if asked.
func (a *app) present(w io.Writer, path string, res *dispatch.Result) error {
	if dir := a.cfg.Output.Dir; dir != "" {
		out, err := batch.WriteArtifact(res.Artifact, dir, path)
		if err != nil {
			return err
		}
		if out != "" {
			_, _ = fmt.Fprintf(w, "%s: %s -> %s\n", path, res.Decoder.ID, out)
			return nil
		}
	}

	switch v := res.Artifact.(type) {
	case *artifact.Text:
		_, _ = fmt.Fprintln(w, v.Content)
	case *artifact.Image:
		_, _ = fmt.Fprintf(w, "%s: %s image %dx%d\n", path, res.Decoder.ID, v.Width, v.Height)
	case *artifact.AudioStream:
		_, _ = fmt.Fprintf(w, "%s: %s audio stream (%s) ready\n", path, res.Decoder.ID, formatOf(v.Resource))
	case *artifact.VideoStream:
		_, _ = fmt.Fprintf(w, "%s: %s video stream (%s) ready\n", path, res.Decoder.ID, formatOf(v.Resource))
	default:
		_, _ = fmt.Fprintf(w, "%s: %s %s\n", path, res.Decoder.ID, res.Artifact.Kind())
	}
	return nil
}

func formatOf(r artifact.Resource) string {
	if r == nil {
		return "unknown"
	}
	return r.Format()
}
