// Package decoder defines the capability interface every format decoder
// implements and the match-rating evaluator that scores a decoder against a
// byte stream.
package decoder

import (
	"strings"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

// Container identifies the archive format a stream was extracted from.
type Container string

// Generic is the unknown container. It never disqualifies a decoder.
const Generic Container = ""

// Specific reports whether c names a known container.
func (c Container) Specific() bool { return c != Generic }

// Context carries the per-call side-channel data supplied by the archive layer.
type Context struct {
	Container Container
	Palette   palette.Palette
}

// Descriptor is the static identity of a decoder.
type Descriptor struct {
	ID                string
	Name              string
	Extensions        []string
	StandardFormat    bool
	RequiredContainer Container
	Game              string
	Platform          string
	Requires          []capability.Capability
}

// Describe normalizes extensions to lower case without a leading dot.
func Describe(d Descriptor) Descriptor {
	exts := make([]string, 0, len(d.Extensions))
	for _, e := range d.Extensions {
		exts = append(exts, strings.TrimPrefix(strings.ToLower(e), "."))
	}
	d.Extensions = exts
	return d
}

// Accepts reports whether ext (lower-case, no dot) is one of d's extensions.
func (d Descriptor) Accepts(ext string) bool {
	if ext == "" {
		return false
	}
	for _, e := range d.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decoder turns a byte stream into an Artifact. Implementations hold no
// per-call state and may be shared between goroutines; the stream may not.
type Decoder interface {
	Descriptor() Descriptor
	MatchRating(s *stream.Stream, ctx Context) int
	Decode(s *stream.Stream, ctx Context) (artifact.Artifact, error)
}

// Thumbnailer is implemented by decoders that can produce a cheaper image
// preview no larger than maxEdge on either side.
type Thumbnailer interface {
	DecodeThumbnail(s *stream.Stream, ctx Context, maxEdge int) (artifact.Artifact, error)
}
