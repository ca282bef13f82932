// Package formats contains the concrete decoders. Each file covers one
// format family; All returns them in registration order, which is also the
// tie-break precedence used by the dispatcher.
package formats

import (
	"log/slog"

	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/player"
)

// Options are the limits and collaborators shared by the decoders.
type Options struct {
	// MaxDimension caps image width and height.
	MaxDimension int
	// MaxPixels caps width*height of a standard image regardless of how
	// small the compressed file is.
	MaxPixels int64
	// MaxTextBytes caps plain-text entries.
	MaxTextBytes int64
	// MaxPDFPages caps the pages extracted from a PDF.
	MaxPDFPages int
	// TextCharset names the fallback encoding for text that is not valid UTF-8.
	TextCharset string

	Subsystem player.Subsystem
	Player    player.Options
	Logger    *slog.Logger
}

// DefaultOptions returns the limits used by the CLI.
func DefaultOptions() Options {
	return Options{
		MaxDimension: 8192,
		MaxPixels:    1 << 25,
		MaxTextBytes: 4 << 20,
		MaxPDFPages:  20,
		TextCharset:  "windows-1252",
		Subsystem:    player.NewHeaderSubsystem(),
		Player:       player.DefaultOptions(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxDimension <= 0 {
		o.MaxDimension = d.MaxDimension
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = d.MaxPixels
	}
	if o.MaxTextBytes <= 0 {
		o.MaxTextBytes = d.MaxTextBytes
	}
	if o.MaxPDFPages <= 0 {
		o.MaxPDFPages = d.MaxPDFPages
	}
	if o.TextCharset == "" {
		o.TextCharset = d.TextCharset
	}
	if o.Subsystem == nil {
		o.Subsystem = d.Subsystem
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Player.Logger = o.Logger
	return o
}

// All returns every decoder in registration order. Specific decoders come
// before the generic fallbacks that share their extensions.
func All(opts Options) []decoder.Decoder {
	opts = opts.withDefaults()
	return []decoder.Decoder{
		NewSprite(opts),
		NewScriptText(opts),
		NewWave(opts),
		NewMIDI(opts),
		NewVideo(opts),
		NewImage(opts),
		NewPaletteFile(opts),
		NewPDF(opts),
		NewText(opts),
		NewAudio(opts),
	}
}

func fail(id, op string, err error) error {
	return &decoder.Error{Decoder: id, Op: op, Err: err}
}
