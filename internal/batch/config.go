package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/MeKo-Tech/datpeek/internal/decoder"
)

// Config holds all configuration for a scan.
type Config struct {
	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Per-entry work
	IdentifyOnly  bool
	ThumbnailSize int
	OutputDir     string
	Context       decoder.Context

	// Parallel processing settings
	Workers int

	// Output settings
	Format      string
	OutputFile  string
	MetricsFile string

	Progress ProgressCallback
	Logger   *slog.Logger
}

// Result holds the outcome of a scan. Entries line up with Paths.
type Result struct {
	ID          string
	Entries     []*EntryReport
	Paths       []string
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a scan.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	ByDecoder map[string]int
	ByReason  map[string]int
}

// Stats counts outcomes per decoder and per failure reason.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:     len(r.Entries),
		ByDecoder: make(map[string]int),
		ByReason:  make(map[string]int),
	}
	for _, e := range r.Entries {
		if e == nil {
			continue
		}
		s.ByReason[e.Reason]++
		if e.OK() {
			s.Succeeded++
			s.ByDecoder[e.Decoder]++
		} else {
			s.Failed++
		}
	}
	return s
}

// FormatResults renders the entries in the given output format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nScan Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Scan: %s\n", r.ID)
	_, _ = fmt.Fprintf(w, "  Total entries: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Succeeded: %d\n", stats.Succeeded)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if stats.Total > 0 && r.Duration > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f entries/sec\n", float64(stats.Total)/r.Duration.Seconds())
	}
	for _, id := range sortedKeys(stats.ByDecoder) {
		_, _ = fmt.Fprintf(w, "  %s: %d\n", id, stats.ByDecoder[id])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
