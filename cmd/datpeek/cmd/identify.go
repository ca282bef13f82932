package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/dispatch"
)

type rankedCandidate struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Score int    `json:"score" yaml:"score"`
}

type identification struct {
	Path       string            `json:"path" yaml:"path"`
	Best       string            `json:"best,omitempty" yaml:"best,omitempty"`
	Candidates []rankedCandidate `json:"candidates" yaml:"candidates"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

func newIdentifyCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "identify [files...]",
		Short: "Rank the decoders that claim each file",
		Long: `Evaluate every enabled decoder against each file and list the candidates
by score. Equal scores keep registration order. Files no decoder claims are
reported and make the command fail.

Examples:
  datpeek identify intro.scr
  datpeek identify hero.spr --container sprite-pak --all
  datpeek identify *.wav --format json`,
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

			results := make([]identification, 0, len(args))
			unidentified := 0
			for _, path := range args {
				id := identifyFile(d, ctx, path, all)
				if id.Best == "" {
					unidentified++
				}
				results = append(results, id)
			}

			if err := writeIdentifications(cmd.OutOrStdout(), results, a.cfg.Output.Format); err != nil {
				return err
			}
			if unidentified > 0 {
				return fmt.Errorf("%d of %d files unidentified: %w", unidentified, len(args), decoder.ErrNoCandidate)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also list decoders that scored zero")
	cmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml, csv)")
	bind(cmd.Flags(), "format", "output.format")
	return cmd
}

func identifyFile(d *dispatch.Dispatcher, ctx decoder.Context, path string, all bool) identification {
	id := identification{Path: path, Candidates: []rankedCandidate{}}
	s, f, err := openStream(path)
	if err != nil {
		id.Error = err.Error()
		return id
	}
	defer func() { _ = f.Close() }()

	for _, c := range d.Rank(s, ctx) {
		if c.Score <= 0 && !all {
			continue
		}
		id.Candidates = append(id.Candidates, rankedCandidate{ID: c.ID, Name: c.Name, Score: c.Score})
	}
	if best, err := d.Identify(s, ctx); err == nil {
		id.Best = best.ID
	} else {
		id.Error = err.Error()
	}
	return id
}

func writeIdentifications(w io.Writer, results []identification, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		return yaml.NewEncoder(w).Encode(results)
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"path", "rank", "id", "name", "score"})
		for _, r := range results {
			for i, c := range r.Candidates {
				_ = cw.Write([]string{r.Path, strconv.Itoa(i + 1), c.ID, c.Name, strconv.Itoa(c.Score)})
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		for i, r := range results {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintf(w, "# %s\n", r.Path)
			for _, c := range r.Candidates {
				marker := " "
				if c.ID == r.Best {
					marker = "*"
				}
				_, _ = fmt.Fprintf(w, "%s %-12s %3d  %s\n", marker, c.ID, c.Score, c.Name)
			}
			if r.Error != "" {
				_, _ = fmt.Fprintf(w, "  error: %s\n", r.Error)
			}
		}
		return nil
	}
}
