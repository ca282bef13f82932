package decoder

import (
	"bytes"

	"github.com/MeKo-Tech/datpeek/internal/stream"
)

// Signal weights shared by all decoders.
const (
	// ExtensionBonus is added when the file extension is one the decoder recognizes.
	ExtensionBonus = 25
	// ContainerBonus is added when the decoder's required container is active.
	// It must outweigh any extension/magic combination of a generic decoder.
	ContainerBonus = 50
)

// MagicFunc inspects the stream from offset 0 and returns a bonus. Read errors
// should simply yield 0; panics are recovered by the evaluator.
type MagicFunc func(s *stream.Stream) int

// Rate sums the container, extension and magic signals for d. A decoder that
// requires a container is disqualified (score 0) when a different, specific
// container is active; a generic container never disqualifies.
func Rate(d Descriptor, s *stream.Stream, ctx Context, magic MagicFunc) int {
	score := 0
	if d.RequiredContainer.Specific() && ctx.Container.Specific() {
		if d.RequiredContainer != ctx.Container {
			return 0
		}
		score += ContainerBonus
	}
	if d.Accepts(s.Extension()) {
		score += ExtensionBonus
	}
	if magic != nil {
		score += probe(s, magic)
	}
	return score
}

// Evaluate runs dec.MatchRating without letting it disturb the caller: the
// stream offset is restored, panics count as 0 and negative scores clamp to 0.
func Evaluate(dec Decoder, s *stream.Stream, ctx Context) (score int) {
	start := s.Offset()
	defer func() {
		if r := recover(); r != nil {
			score = 0
		}
		_ = s.SeekTo(start)
	}()
	if err := s.Rewind(); err != nil {
		return 0
	}
	return max(dec.MatchRating(s, ctx), 0)
}

func probe(s *stream.Stream, magic MagicFunc) (bonus int) {
	start := s.Offset()
	defer func() {
		if r := recover(); r != nil {
			bonus = 0
		}
		_ = s.SeekTo(start)
	}()
	if err := s.Rewind(); err != nil {
		return 0
	}
	return max(magic(s), 0)
}

// Prefix returns a MagicFunc awarding bonus when the stream starts with sig.
func Prefix(sig []byte, bonus int) MagicFunc {
	return At(0, sig, bonus)
}

// At returns a MagicFunc awarding bonus when sig appears at offset off.
func At(off int64, sig []byte, bonus int) MagicFunc {
	return func(s *stream.Stream) int {
		if HasBytes(s, off, sig) {
			return bonus
		}
		return 0
	}
}

// Any returns the bonus of the first matching MagicFunc.
func Any(funcs ...MagicFunc) MagicFunc {
	return func(s *stream.Stream) int {
		for _, f := range funcs {
			if b := probe(s, f); b > 0 {
				return b
			}
		}
		return 0
	}
}

// HasBytes reports whether sig appears at absolute offset off. The stream
// position is left unchanged.
func HasBytes(s *stream.Stream, off int64, sig []byte) bool {
	start := s.Offset()
	defer func() { _ = s.SeekTo(start) }()
	if err := s.SeekTo(off); err != nil {
		return false
	}
	got, err := s.Peek(len(sig))
	if err != nil {
		return false
	}
	return bytes.Equal(got, sig)
}
