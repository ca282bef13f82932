package decoder

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/datpeek/internal/stream"
)

var (
	// ErrMalformedLength means a declared size disagrees with the stream size.
	ErrMalformedLength = errors.New("malformed length")
	// ErrMissingPalette means required palette side-channel data is absent or short.
	ErrMissingPalette = errors.New("missing palette")
	// ErrBoundsViolation means a computed pixel or text extent exceeds the stream.
	ErrBoundsViolation = stream.ErrOutOfBounds
	// ErrIncompatibleStream means the media subsystem rejected the content.
	ErrIncompatibleStream = errors.New("incompatible stream")
	// ErrNoCandidate means no enabled decoder accepted the stream.
	ErrNoCandidate = errors.New("no candidate decoder")
)

// Error records which decoder failed and during which step.
type Error struct {
	Decoder string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Decoder, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Reason maps err onto a short taxonomy label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedLength):
		return "malformed_length"
	case errors.Is(err, ErrMissingPalette):
		return "missing_palette"
	case errors.Is(err, ErrBoundsViolation):
		return "bounds_violation"
	case errors.Is(err, ErrIncompatibleStream):
		return "incompatible_stream"
	case errors.Is(err, ErrNoCandidate):
		return "no_candidate"
	default:
		return "other"
	}
}
