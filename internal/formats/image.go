package formats

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

const imageMagicBonus = 40

// pixelsPerByte bounds how many pixels one compressed byte may claim. Deflate
// tops out near 1032:1 and a 1-bit PNG packs 8 pixels per byte; LZW and the
// other registered codecs stay below that.
const pixelsPerByte = 1 << 14

var imageDescriptor = decoder.Describe(decoder.Descriptor{
	ID:             "image",
	Name:           "Standard image",
	Extensions:     []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"},
	StandardFormat: true,
})

var imageMagic = decoder.Any(
	decoder.Prefix([]byte("\x89PNG\r\n\x1a\n"), imageMagicBonus),
	decoder.Prefix([]byte{0xFF, 0xD8, 0xFF}, imageMagicBonus),
	decoder.Prefix([]byte("GIF87a"), imageMagicBonus),
	decoder.Prefix([]byte("GIF89a"), imageMagicBonus),
	decoder.Prefix([]byte("BM"), imageMagicBonus),
	decoder.Prefix([]byte("II*\x00"), imageMagicBonus),
	decoder.Prefix([]byte("MM\x00*"), imageMagicBonus),
	riffForm("WEBP", imageMagicBonus),
)

// Image decodes the standard raster formats registered with package image.
type Image struct {
	maxDim    int
	maxPixels int64
}

// NewImage returns the standard image decoder.
func NewImage(opts Options) *Image {
	opts = opts.withDefaults()
	return &Image{maxDim: opts.MaxDimension, maxPixels: opts.MaxPixels}
}

func (*Image) Descriptor() decoder.Descriptor { return imageDescriptor }

func (*Image) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(imageDescriptor, s, ctx, imageMagic)
}

func (d *Image) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	img, err := d.decode(s)
	if err != nil {
		return nil, err
	}
	out, err := artifact.FromImage(img)
	if err != nil {
		return nil, fail("image", "convert", err)
	}
	return out, nil
}

// DecodeThumbnail scales before packing so large images never get a full
// 0xAARRGGBB copy.
func (d *Image) DecodeThumbnail(s *stream.Stream, _ decoder.Context, maxEdge int) (artifact.Artifact, error) {
	img, err := d.decode(s)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if maxEdge > 0 && (b.Dx() > maxEdge || b.Dy() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	out, err := artifact.FromImage(img)
	if err != nil {
		return nil, fail("image", "thumbnail", err)
	}
	return out, nil
}

// decode checks the header dimensions before any pixel buffer is allocated.
func (d *Image) decode(s *stream.Stream) (image.Image, error) {
	cfg, format, err := image.DecodeConfig(s.Section())
	if err != nil {
		return nil, fail("image", "header", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > d.maxDim || cfg.Height > d.maxDim {
		return nil, fail("image", "header", fmt.Errorf("%w: %s %dx%d outside 1..%d",
			decoder.ErrBoundsViolation, format, cfg.Width, cfg.Height, d.maxDim))
	}
	// The codecs size the canvas from the header before reading any pixel
	// data, so a forged header on a tiny file must be refused here.
	pixels := int64(cfg.Width) * int64(cfg.Height)
	if budget := d.pixelBudget(s.Len()); pixels > budget {
		return nil, fail("image", "header", fmt.Errorf("%w: %s %dx%d exceeds %d pixels for %d bytes",
			decoder.ErrBoundsViolation, format, cfg.Width, cfg.Height, budget, s.Len()))
	}
	img, _, err := image.Decode(s.Section())
	if err != nil {
		return nil, fail("image", "decode", fmt.Errorf("%s: %w", format, err))
	}
	return img, nil
}

func (d *Image) pixelBudget(size int64) int64 {
	if size > d.maxPixels/pixelsPerByte {
		return d.maxPixels
	}
	return size * pixelsPerByte
}
