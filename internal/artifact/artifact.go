// Package artifact defines the normalized results produced by decoders.
package artifact

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// Kind identifies an Artifact variant.
type Kind int

const (
	KindImage Kind = iota + 1
	KindText
	KindAudio
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Artifact is a decoded preview. Ownership passes to the caller.
type Artifact interface {
	Kind() Kind
}

// ErrDimensions is returned when pixel data does not match the declared size.
var ErrDimensions = errors.New("artifact: pixel count does not match width*height")

// Image holds packed 0xAARRGGBB pixels in row-major order.
type Image struct {
	Pixels []uint32
	Width  int
	Height int
}

// NewImage validates that width*height == len(pixels).
func NewImage(pixels []uint32, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	if width*height != len(pixels) {
		return nil, fmt.Errorf("%w: %dx%d with %d pixels", ErrDimensions, width, height, len(pixels))
	}
	return &Image{Pixels: pixels, Width: width, Height: height}, nil
}

// FromImage packs any image.Image into an Image.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	px := make([]uint32, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			px = append(px, Pack(c.R, c.G, c.B, c.A))
		}
	}
	return NewImage(px, w, h)
}

func (*Image) Kind() Kind { return KindImage }

// At returns the packed pixel at (x, y).
func (img *Image) At(x, y int) uint32 {
	return img.Pixels[y*img.Width+x]
}

// ToNRGBA converts the image for rendering or PNG export.
func (img *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i, p := range img.Pixels {
		r, g, b, a := Unpack(p)
		o := i * 4
		out.Pix[o] = r
		out.Pix[o+1] = g
		out.Pix[o+2] = b
		out.Pix[o+3] = a
	}
	return out
}

// Thumbnail scales the image down so that neither edge exceeds maxEdge.
// Images already within bounds are returned unchanged.
func (img *Image) Thumbnail(maxEdge int) (*Image, error) {
	if maxEdge <= 0 || (img.Width <= maxEdge && img.Height <= maxEdge) {
		return img, nil
	}
	scaled := imaging.Fit(img.ToNRGBA(), maxEdge, maxEdge, imaging.Lanczos)
	return FromImage(scaled)
}

// Pack builds a 0xAARRGGBB pixel.
func Pack(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Unpack splits a 0xAARRGGBB pixel.
func Unpack(p uint32) (r, g, b, a uint8) {
	return uint8(p >> 16), uint8(p >> 8), uint8(p), uint8(p >> 24)
}

// Text is decoded textual content.
type Text struct {
	Content string
}

func (*Text) Kind() Kind { return KindText }

// Resource is a playable handle prepared by an external media subsystem.
type Resource interface {
	io.Closer
	Format() string
}

// AudioStream hands an audio resource to the caller, which must Close it.
type AudioStream struct {
	Resource Resource
}

func (*AudioStream) Kind() Kind { return KindAudio }

// Close releases the underlying resource.
func (a *AudioStream) Close() error { return closeResource(a.Resource) }

// VideoStream hands a video resource to the caller, which must Close it.
type VideoStream struct {
	Resource Resource
}

func (*VideoStream) Kind() Kind { return KindVideo }

// Close releases the underlying resource.
func (v *VideoStream) Close() error { return closeResource(v.Resource) }

// Release closes the resource behind a stream artifact. Other kinds are a no-op.
func Release(a Artifact) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeResource(r Resource) error {
	if r == nil {
		return nil
	}
	return r.Close()
}
