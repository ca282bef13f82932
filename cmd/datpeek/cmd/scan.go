package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/datpeek/internal/batch"
)

func newScanCommand(a *app) *cobra.Command {
	var (
		identifyOnly bool
		thumbnail    bool
		outputFile   string
		progress     bool
		stats        bool
	)
	cmd := &cobra.Command{
		Use:   "scan [files or directories...]",
		Short: "Identify and decode every extracted entry in parallel",
		Long: `Walk files and directories of extracted archive entries, run each through
the decoders with a pool of workers, and write one report covering them all.
Failed entries are part of the report and do not fail the command.

Examples:
  datpeek scan extracted/
  datpeek scan extracted/ --include '*.spr' --container sprite-pak --palette game.pal
  datpeek scan extracted/ --workers 8 --format csv --output report.csv
  datpeek scan extracted/ --thumbnail -d previews/ --metrics-file datpeek.prom`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dispatcher()
			if err != nil {
				return err
			}
			dctx, err := a.decoderContext()
			if err != nil {
				return err
			}

			cfg := &batch.Config{
				Recursive:       a.cfg.Batch.Recursive,
				IncludePatterns: a.cfg.Batch.Include,
				ExcludePatterns: a.cfg.Batch.Exclude,
				IdentifyOnly:    identifyOnly,
				OutputDir:       a.cfg.Output.Dir,
				Context:         dctx,
				Workers:         a.cfg.Batch.Workers,
				Format:          a.cfg.Output.Format,
				OutputFile:      outputFile,
				MetricsFile:     a.cfg.Batch.MetricsFile,
				Logger:          a.logger,
			}
			if thumbnail {
				cfg.ThumbnailSize = a.cfg.Thumbnail.Size
			}
			if progress {
				cfg.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Scanning: ")
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
			defer stop()

			res, err := batch.Run(ctx, d, args, cfg)
			if err != nil {
				return err
			}
			if err := res.SaveResults(cmd.OutOrStdout(), cfg.Format, cfg.OutputFile); err != nil {
				return err
			}
			if stats {
				res.PrintStats(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntP("workers", "w", 4, "number of parallel workers")
	f.BoolP("recursive", "r", true, "descend into subdirectories")
	f.StringSlice("include", nil, "only scan files matching these patterns (e.g. '*.spr')")
	f.StringSlice("exclude", nil, "skip files matching these patterns")
	f.BoolVar(&identifyOnly, "identify-only", false, "rank decoders without decoding")
	f.BoolVar(&thumbnail, "thumbnail", false, "decode reduced previews")
	f.Int("thumbnail-size", 128, "longest thumbnail edge in pixels")
	f.StringP("output-dir", "d", "", "write decoded previews into this directory")
	f.StringP("format", "f", "text", "report format (text, json, yaml, csv)")
	f.StringVarP(&outputFile, "output", "o", "", "write the report to this file instead of stdout")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	f.BoolVar(&progress, "progress", false, "show a progress bar on stderr")
	f.BoolVar(&stats, "stats", false, "print scan statistics on stderr")
	bind(f, "workers", "batch.workers")
	bind(f, "recursive", "batch.recursive")
	bind(f, "include", "batch.include")
	bind(f, "exclude", "batch.exclude")
	bind(f, "thumbnail-size", "thumbnail.size")
	bind(f, "output-dir", "output.dir")
	bind(f, "format", "output.format")
	bind(f, "metrics-file", "batch.metrics_file")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
