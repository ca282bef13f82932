// Package player adapts an external media subsystem whose playable resources
// are prepared asynchronously. Await polls a bounded number of times for the
// resource to become usable.
package player

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/datpeek/internal/decoder"
)

// State is the realization state reported by a Player.
type State int

const (
	Unrealized State = iota
	Realizing
	Realized
)

func (s State) String() string {
	switch s {
	case Unrealized:
		return "unrealized"
	case Realizing:
		return "realizing"
	case Realized:
		return "realized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind selects the subsystem service a resource is opened with.
type Kind int

const (
	KindSampled Kind = iota + 1
	KindSequenced
	KindVideo
)

// Player is a resource handle owned by the external subsystem.
type Player interface {
	// Realize asks the subsystem to start preparing the resource.
	Realize() error
	State() State
	Format() string
	Close() error
}

// Subsystem opens players for raw content.
type Subsystem interface {
	Open(kind Kind, data []byte) (Player, error)
}

const (
	// DefaultPollInterval is the wait between realization polls.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultMaxAttempts bounds the number of realization polls.
	DefaultMaxAttempts = 5
)

// Options tunes Await.
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	// Sleep replaces time.Sleep; tests use it to avoid real waits.
	Sleep  func(time.Duration)
	Logger *slog.Logger
}

// DefaultOptions returns the standard polling budget.
func DefaultOptions() Options {
	return Options{PollInterval: DefaultPollInterval, MaxAttempts: DefaultMaxAttempts}
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Outcome describes how Await finished.
type Outcome struct {
	State    State
	Attempts int
	// Assumed is set when the budget ran out while the player was still
	// realizing and the resource is being treated as usable anyway.
	Assumed bool
}

// Await requests realization and polls p until it settles or the attempt
// budget is spent. A player that falls back to Unrealized after it was seen
// Realizing yields decoder.ErrIncompatibleStream; an Unrealized poll before
// that only means the subsystem has not started yet. A player still
// Realizing after the last attempt is accepted optimistically; this can let
// an incompatible stream through on slow codecs. One that never left
// Unrealized is rejected.
//
// Await sleeps the calling goroutine and cannot be interrupted.
func Await(p Player, opts Options) (Outcome, error) {
	opts = opts.withDefaults()
	if err := p.Realize(); err != nil {
		return Outcome{State: Unrealized}, fmt.Errorf("realize %s: %w", p.Format(), err)
	}

	var out Outcome
	started := false
	for out.Attempts < opts.MaxAttempts {
		opts.Sleep(opts.PollInterval)
		out.Attempts++
		out.State = p.State()

		switch out.State {
		case Realized:
			return out, nil
		case Realizing:
			started = true
		case Unrealized:
			if started {
				return out, fmt.Errorf("%s rejected after %d polls: %w",
					p.Format(), out.Attempts, decoder.ErrIncompatibleStream)
			}
		}
	}

	if !started {
		return out, fmt.Errorf("%s never started realizing in %d polls: %w",
			p.Format(), out.Attempts, decoder.ErrIncompatibleStream)
	}
	out.Assumed = true
	opts.Logger.Warn("realization still pending, assuming playable",
		"format", p.Format(), "attempts", out.Attempts, "interval", opts.PollInterval)
	return out, nil
}

// Prepare opens data with sub and waits for realization. On failure the
// player is closed before returning.
func Prepare(sub Subsystem, kind Kind, data []byte, opts Options) (Player, Outcome, error) {
	p, err := sub.Open(kind, data)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("open: %w: %v", decoder.ErrIncompatibleStream, err)
	}
	out, err := Await(p, opts)
	if err != nil {
		_ = p.Close()
		return nil, out, err
	}
	return p, out, nil
}
