// Package dispatch ranks the registered decoders against a stream and runs
// the best one, falling through to the next candidate when a decode fails.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/registry"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

// Candidate is an enabled decoder with its score for one stream.
type Candidate struct {
	ID      string
	Name    string
	Score   int
	Index   int
	Decoder decoder.Decoder
}

// Failure records a candidate that was tried and failed.
type Failure struct {
	Decoder string
	Score   int
	Err     error
}

// Result is the outcome of a decode. On failure it is still returned so the
// caller can report the per-candidate errors.
type Result struct {
	RequestID string
	Artifact  artifact.Artifact
	Decoder   Candidate
	Failures  []Failure
	Duration  time.Duration
}

// Dispatcher is safe for concurrent use with distinct streams.
type Dispatcher struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// New returns a dispatcher over reg. A nil logger uses slog.Default.
func New(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{reg: reg, logger: logger}
}

// Registry returns the registry the dispatcher ranks.
func (d *Dispatcher) Registry() *registry.Registry { return d.reg }

// Rank scores every enabled decoder. The result is ordered by score, highest
// first, with registration order deciding ties. Disabled decoders are never
// evaluated. The stream position is unchanged afterwards.
func (d *Dispatcher) Rank(s *stream.Stream, ctx decoder.Context) []Candidate {
	entries := d.reg.Enabled()
	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, Candidate{
			ID:      e.Descriptor.ID,
			Name:    e.Descriptor.Name,
			Score:   decoder.Evaluate(e.Decoder, s, ctx),
			Index:   e.Index,
			Decoder: e.Decoder,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Identify returns the best candidate. A best score of zero means no decoder
// recognized the stream and yields decoder.ErrNoCandidate.
func (d *Dispatcher) Identify(s *stream.Stream, ctx decoder.Context) (Candidate, error) {
	ranked := d.Rank(s, ctx)
	if len(ranked) == 0 || ranked[0].Score <= 0 {
		identificationsTotal.WithLabelValues("none").Inc()
		return Candidate{}, fmt.Errorf("%s: %w", s.Name(), decoder.ErrNoCandidate)
	}
	best := ranked[0]
	identificationsTotal.WithLabelValues(best.ID).Inc()
	candidateScore.WithLabelValues(best.ID).Observe(float64(best.Score))
	return best, nil
}

// Decode runs the candidates with a positive score in rank order until one
// succeeds. The stream is rewound before each attempt.
func (d *Dispatcher) Decode(s *stream.Stream, ctx decoder.Context) (*Result, error) {
	return d.run(s, ctx, "decode", func(c Candidate) (artifact.Artifact, error) {
		return c.Decoder.Decode(s, ctx)
	})
}

// DecodeThumbnail is Decode for previews no larger than maxEdge. Decoders
// implementing decoder.Thumbnailer take their cheaper path; other images are
// scaled after a full decode and non-image artifacts pass through.
func (d *Dispatcher) DecodeThumbnail(s *stream.Stream, ctx decoder.Context, maxEdge int) (*Result, error) {
	return d.run(s, ctx, "thumbnail", func(c Candidate) (artifact.Artifact, error) {
		if t, ok := c.Decoder.(decoder.Thumbnailer); ok {
			return t.DecodeThumbnail(s, ctx, maxEdge)
		}
		a, err := c.Decoder.Decode(s, ctx)
		if err != nil {
			return nil, err
		}
		img, ok := a.(*artifact.Image)
		if !ok {
			return a, nil
		}
		thumb, err := img.Thumbnail(maxEdge)
		if err != nil {
			return nil, err
		}
		return thumb, nil
	})
}

func (d *Dispatcher) run(s *stream.Stream, ctx decoder.Context, op string,
	call func(Candidate) (artifact.Artifact, error)) (*Result, error) {
	res := &Result{RequestID: uuid.NewString()}
	start := time.Now()
	log := d.logger.With("request_id", res.RequestID, "op", op,
		"entry", s.Name(), "container", string(ctx.Container))

	for _, c := range d.Rank(s, ctx) {
		if c.Score <= 0 {
			break
		}
		if len(res.Failures) > 0 {
			fallThroughTotal.Inc()
		}
		if err := s.Rewind(); err != nil {
			return res, fmt.Errorf("rewind %s: %w", s.Name(), err)
		}

		began := time.Now()
		a, err := attempt(c, call)
		decodeDuration.WithLabelValues(c.ID).Observe(time.Since(began).Seconds())
		decodesTotal.WithLabelValues(c.ID, decoder.Reason(err)).Inc()
		if err != nil {
			log.Debug("candidate failed", "decoder", c.ID, "score", c.Score, "error", err)
			res.Failures = append(res.Failures, Failure{Decoder: c.ID, Score: c.Score, Err: err})
			continue
		}

		res.Artifact = a
		res.Decoder = c
		res.Duration = time.Since(start)
		log.Debug("decoded", "decoder", c.ID, "score", c.Score,
			"kind", a.Kind().String(), "failed_candidates", len(res.Failures))
		return res, nil
	}

	res.Duration = time.Since(start)
	errs := []error{fmt.Errorf("%s: %w", s.Name(), decoder.ErrNoCandidate)}
	for _, f := range res.Failures {
		errs = append(errs, f.Err)
	}
	log.Debug("no decoder succeeded", "tried", len(res.Failures))
	return res, errors.Join(errs...)
}

// attempt shields the dispatcher from panicking decoders.
func attempt(c Candidate, call func(Candidate) (artifact.Artifact, error)) (a artifact.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = &decoder.Error{Decoder: c.ID, Op: "decode", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	a, err = call(c)
	if err == nil && a == nil {
		err = &decoder.Error{Decoder: c.ID, Op: "decode", Err: errors.New("no artifact")}
	}
	return a, err
}
