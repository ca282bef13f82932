package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/datpeek/internal/registry"
)

type formatInfo struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Extensions []string `json:"extensions" yaml:"extensions"`
	Container  string   `json:"container,omitempty" yaml:"container,omitempty"`
	Standard   bool     `json:"standard" yaml:"standard"`
	Requires   []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func newFormatsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List registered decoders in priority order",
		Long: `List every registered decoder in registration order, which is also the
tie-break order between equal scores, with the reason any of them is
disabled on this host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			return writeFormats(cmd.OutOrStdout(), describeFormats(reg), a.cfg.Output.Format)
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
	bind(cmd.Flags(), "format", "output.format")
	return cmd
}

func describeFormats(reg *registry.Registry) []formatInfo {
	entries := reg.Entries()
	out := make([]formatInfo, len(entries))
	for i, e := range entries {
		d := e.Descriptor
		info := formatInfo{
			ID:         d.ID,
			Name:       d.Name,
			Extensions: d.Extensions,
			Container:  string(d.RequiredContainer),
			Standard:   d.StandardFormat,
			Enabled:    e.Enabled,
			Reason:     e.Reason,
		}
		for _, c := range d.Requires {
			info.Requires = append(info.Requires, string(c))
		}
		out[i] = info
	}
	return out
}

func writeFormats(w io.Writer, infos []formatInfo, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml":
		return yaml.NewEncoder(w).Encode(infos)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tEXTENSIONS\tCONTAINER\tSTATUS")
		for _, f := range infos {
			status := "enabled"
			if !f.Enabled {
				status = "disabled: " + f.Reason
			}
			container := f.Container
			if container == "" {
				container = "-"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				f.ID, f.Name, strings.Join(f.Extensions, ","), container, status)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format for formats: %s", format)
	}
}
