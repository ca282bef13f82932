package dispatch

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Identification metrics
	identificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datpeek_identifications_total",
			Help: "Total number of identifications by winning decoder",
		},
		[]string{"decoder"}, // "none" when nothing scored
	)

	candidateScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datpeek_candidate_score",
			Help:    "Match rating of the best candidate",
			Buckets: []float64{0, 10, 25, 40, 50, 65, 75, 100, 125},
		},
		[]string{"decoder"},
	)

	// Decode metrics
	decodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datpeek_decodes_total",
			Help: "Total number of decode attempts",
		},
		[]string{"decoder", "reason"}, // reason: ok, malformed_length, missing_palette, ...
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datpeek_decode_duration_seconds",
			Help:    "Decode duration in seconds, including realization waits",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"decoder"},
	)

	fallThroughTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datpeek_decode_fallthrough_total",
			Help: "Total number of times a lower-ranked candidate was tried after a failure",
		},
	)
)

// WriteMetrics dumps the default registry in the node exporter textfile
// format.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
