package formats

import (
	"fmt"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

// ContainerSpritePak is the archive family whose .spr entries are
// palette-indexed sprites. Other archives use .spr for unrelated data.
const ContainerSpritePak decoder.Container = "sprite-pak"

const spriteTagBonus = 25

var spriteDescriptor = decoder.Describe(decoder.Descriptor{
	ID:                "sprite",
	Name:              "Palette-indexed sprite",
	Extensions:        []string{"spr"},
	RequiredContainer: ContainerSpritePak,
})

// Sprite decodes palette-indexed rasters laid out as
//
//	"SIZE" width:u16le height:u16le "DATA" index[width*height]
//
// The palette comes from the archive context.
type Sprite struct {
	maxDim int
}

// NewSprite returns the sprite decoder.
func NewSprite(opts Options) *Sprite {
	return &Sprite{maxDim: opts.withDefaults().MaxDimension}
}

func (*Sprite) Descriptor() decoder.Descriptor { return spriteDescriptor }

func (d *Sprite) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(spriteDescriptor, s, ctx, decoder.Prefix([]byte("SIZE"), spriteTagBonus))
}

func (d *Sprite) Decode(s *stream.Stream, ctx decoder.Context) (artifact.Artifact, error) {
	img, err := d.decode(s, ctx)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeThumbnail decodes the sprite and scales it down to maxEdge.
func (d *Sprite) DecodeThumbnail(s *stream.Stream, ctx decoder.Context, maxEdge int) (artifact.Artifact, error) {
	img, err := d.decode(s, ctx)
	if err != nil {
		return nil, err
	}
	thumb, err := img.Thumbnail(maxEdge)
	if err != nil {
		return nil, fail("sprite", "thumbnail", err)
	}
	return thumb, nil
}

func (d *Sprite) decode(s *stream.Stream, ctx decoder.Context) (*artifact.Image, error) {
	const id = "sprite"
	if !ctx.Palette.Complete() {
		return nil, fail(id, "palette", fmt.Errorf("%w: have %d entries", decoder.ErrMissingPalette, len(ctx.Palette)))
	}

	// Both tags only mark structure; their content is not checked.
	if err := s.Skip(4); err != nil {
		return nil, fail(id, "header", err)
	}
	w, err := s.ReadU16LE()
	if err != nil {
		return nil, fail(id, "header", err)
	}
	h, err := s.ReadU16LE()
	if err != nil {
		return nil, fail(id, "header", err)
	}
	if err := s.Skip(4); err != nil {
		return nil, fail(id, "header", err)
	}

	width, height := int(w), int(h)
	if width == 0 || height == 0 || width > d.maxDim || height > d.maxDim {
		return nil, fail(id, "header", fmt.Errorf("%w: dimensions %dx%d outside 1..%d",
			decoder.ErrBoundsViolation, width, height, d.maxDim))
	}
	count := int64(width) * int64(height)
	if count > s.Remaining() {
		return nil, fail(id, "pixels", fmt.Errorf("%w: %dx%d needs %d bytes, %d left",
			decoder.ErrBoundsViolation, width, height, count, s.Remaining()))
	}

	indices, err := s.ReadBytes(int(count))
	if err != nil {
		return nil, fail(id, "pixels", err)
	}
	pixels := make([]uint32, len(indices))
	for i, ix := range indices {
		pixels[i] = ctx.Palette[ix]
	}
	img, err := artifact.NewImage(pixels, width, height)
	if err != nil {
		return nil, fail(id, "pixels", err)
	}
	return img, nil
}
