package formats

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

const scriptLengthBonus = 25

var scriptDescriptor = decoder.Describe(decoder.Descriptor{
	ID:         "script-text",
	Name:       "Length-prefixed script text",
	Extensions: []string{"scr", "str"},
})

// ScriptText decodes a u32le byte count followed by that many bytes of
// statement text. Trailing NUL padding is dropped and every ';' ends a line.
type ScriptText struct{}

// NewScriptText returns the script text decoder.
func NewScriptText(Options) *ScriptText { return &ScriptText{} }

func (*ScriptText) Descriptor() decoder.Descriptor { return scriptDescriptor }

func (*ScriptText) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(scriptDescriptor, s, ctx, func(s *stream.Stream) int {
		n, err := s.ReadU32LE()
		if err != nil || int64(n) != s.Remaining() {
			return 0
		}
		return scriptLengthBonus
	})
}

func (*ScriptText) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	const id = "script-text"
	n, err := s.ReadU32LE()
	if err != nil {
		return nil, fail(id, "length", err)
	}
	if int64(n) > s.Remaining() {
		return nil, fail(id, "length", fmt.Errorf("%w: declared %d bytes, %d available",
			decoder.ErrMalformedLength, n, s.Remaining()))
	}
	body, err := s.ReadBytes(int(n))
	if err != nil {
		return nil, fail(id, "body", err)
	}

	text := strings.TrimRight(string(body), "\x00")
	text = strings.ReplaceAll(text, ";", ";\n")
	return &artifact.Text{Content: text}, nil
}
