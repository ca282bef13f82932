package formats

import (
	"fmt"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

const (
	paletteMagicBonus = 50
	maxPaletteFile    = 64 << 10
)

// swatchEdge is the side of the square preview; swatchEdge² == palette.Size.
const swatchEdge = 16

var paletteDescriptor = decoder.Describe(decoder.Descriptor{
	ID:         "palette",
	Name:       "Color palette",
	Extensions: []string{"pal", "act"},
})

// PaletteFile renders a palette file as a 16x16 swatch, one pixel per entry.
type PaletteFile struct{}

// NewPaletteFile returns the palette decoder.
func NewPaletteFile(Options) *PaletteFile { return &PaletteFile{} }

func (*PaletteFile) Descriptor() decoder.Descriptor { return paletteDescriptor }

func (*PaletteFile) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(paletteDescriptor, s, ctx, decoder.Any(
		riffForm("PAL ", paletteMagicBonus),
		decoder.Prefix([]byte("JASC-PAL"), paletteMagicBonus),
	))
}

func (*PaletteFile) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	const id = "palette"
	if s.Len() > maxPaletteFile {
		return nil, fail(id, "read", fmt.Errorf("%w: %d bytes exceeds %d",
			decoder.ErrBoundsViolation, s.Len(), maxPaletteFile))
	}
	data, err := s.ReadAll()
	if err != nil {
		return nil, fail(id, "read", err)
	}
	p, err := palette.Parse(data)
	if err != nil {
		return nil, fail(id, "parse", err)
	}

	pixels := make([]uint32, swatchEdge*swatchEdge)
	copy(pixels, p)
	img, err := artifact.NewImage(pixels, swatchEdge, swatchEdge)
	if err != nil {
		return nil, fail(id, "swatch", err)
	}
	return img, nil
}
