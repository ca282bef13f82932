package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type scanDocument struct {
	Scan    string         `json:"scan" yaml:"scan"`
	Entries []*EntryReport `json:"entries" yaml:"entries"`
}

// formatResults formats the scan results in the specified format.
func formatResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "yaml":
		return formatYAML(r)
	case "csv":
		return formatCSV(r)
	case "text", "":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func document(r *Result) scanDocument {
	doc := scanDocument{Scan: r.ID, Entries: make([]*EntryReport, 0, len(r.Entries))}
	for _, e := range r.Entries {
		if e != nil {
			doc.Entries = append(doc.Entries, e)
		}
	}
	return doc
}

func formatJSON(r *Result) (string, error) {
	bts, err := json.MarshalIndent(document(r), "", "  ")
	return string(bts), err
}

func formatYAML(r *Result) (string, error) {
	bts, err := yaml.Marshal(document(r))
	return string(bts), err
}

func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{
		"path", "size", "blake3", "decoder", "score", "kind", "width", "height", "text_bytes", "media_format", "reason", "error",
	}}
	for _, e := range r.Entries {
		if e == nil {
			continue
		}
		rows = append(rows, []string{
			e.Path,
			strconv.FormatInt(e.Size, 10),
			e.Digest,
			e.Decoder,
			strconv.Itoa(e.Score),
			e.Kind,
			strconv.Itoa(e.Width),
			strconv.Itoa(e.Height),
			strconv.Itoa(e.TextBytes),
			e.Media,
			e.Reason,
			e.Error,
		})
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(r *Result) string {
	var output strings.Builder
	first := true
	for _, e := range r.Entries {
		if e == nil {
			continue
		}
		if !first {
			output.WriteString("\n")
		}
		first = false
		fmt.Fprintf(&output, "# %s\n", e.Path)
		if e.Decoder != "" {
			fmt.Fprintf(&output, "decoder: %s (score %d)\n", e.Decoder, e.Score)
		}
		switch {
		case e.Width > 0:
			fmt.Fprintf(&output, "kind: %s %dx%d\n", e.Kind, e.Width, e.Height)
		case e.Media != "":
			fmt.Fprintf(&output, "kind: %s %s\n", e.Kind, e.Media)
		case e.Kind != "":
			fmt.Fprintf(&output, "kind: %s %d bytes\n", e.Kind, e.TextBytes)
		}
		if e.Output != "" {
			fmt.Fprintf(&output, "output: %s\n", e.Output)
		}
		if !e.OK() {
			fmt.Fprintf(&output, "error (%s): %s\n", e.Reason, e.Error)
		}
	}
	return output.String()
}
