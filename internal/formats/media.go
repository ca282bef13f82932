package formats

import (
	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/player"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

const mediaMagicBonus = 50

// media is the shared shape of the decoders that hand the stream to the
// playback subsystem instead of decoding it themselves.
type media struct {
	desc  decoder.Descriptor
	kind  player.Kind
	magic decoder.MagicFunc
	sub   player.Subsystem
	opts  player.Options
}

func (m *media) Descriptor() decoder.Descriptor { return m.desc }

func (m *media) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(m.desc, s, ctx, m.magic)
}

func (m *media) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	data, err := s.ReadAll()
	if err != nil {
		return nil, fail(m.desc.ID, "read", err)
	}
	p, _, err := player.Prepare(m.sub, m.kind, data, m.opts)
	if err != nil {
		return nil, fail(m.desc.ID, "realize", err)
	}
	if m.kind == player.KindVideo {
		return &artifact.VideoStream{Resource: p}, nil
	}
	return &artifact.AudioStream{Resource: p}, nil
}

func newMedia(opts Options, desc decoder.Descriptor, kind player.Kind, magic decoder.MagicFunc) *media {
	opts = opts.withDefaults()
	return &media{
		desc:  decoder.Describe(desc),
		kind:  kind,
		magic: magic,
		sub:   opts.Subsystem,
		opts:  opts.Player,
	}
}

func riffForm(form string, bonus int) decoder.MagicFunc {
	return func(s *stream.Stream) int {
		if decoder.HasBytes(s, 0, []byte("RIFF")) && decoder.HasBytes(s, 8, []byte(form)) {
			return bonus
		}
		return 0
	}
}

// Wave is the RIFF/WAVE decoder. Its magic bonus keeps it ahead of the
// generic audio fallback for .wav entries.
type Wave struct{ *media }

// NewWave returns the RIFF/WAVE decoder.
func NewWave(opts Options) *Wave {
	return &Wave{newMedia(opts, decoder.Descriptor{
		ID:             "riff-wave",
		Name:           "RIFF WAVE audio",
		Extensions:     []string{"wav"},
		StandardFormat: true,
		Requires:       []capability.Capability{capability.Audio},
	}, player.KindSampled, riffForm("WAVE", mediaMagicBonus))}
}

// MIDI decodes standard MIDI files and their RIFF RMID wrapper.
type MIDI struct{ *media }

// NewMIDI returns the MIDI decoder.
func NewMIDI(opts Options) *MIDI {
	return &MIDI{newMedia(opts, decoder.Descriptor{
		ID:             "midi",
		Name:           "MIDI sequence",
		Extensions:     []string{"mid", "midi", "rmi"},
		StandardFormat: true,
		Requires:       []capability.Capability{capability.MIDI},
	}, player.KindSequenced, decoder.Any(
		decoder.Prefix([]byte("MThd"), mediaMagicBonus),
		riffForm("RMID", mediaMagicBonus),
	))}
}

// Video recognizes the container formats the playback subsystem accepts.
type Video struct{ *media }

// NewVideo returns the video decoder.
func NewVideo(opts Options) *Video {
	return &Video{newMedia(opts, decoder.Descriptor{
		ID:             "video",
		Name:           "Video",
		Extensions:     []string{"avi", "mpg", "mpeg", "mkv", "webm", "bik"},
		StandardFormat: true,
		Requires:       []capability.Capability{capability.Video},
	}, player.KindVideo, decoder.Any(
		riffForm("AVI ", mediaMagicBonus),
		decoder.Prefix([]byte{0x00, 0x00, 0x01, 0xBA}, mediaMagicBonus),
		decoder.Prefix([]byte{0x1A, 0x45, 0xDF, 0xA3}, mediaMagicBonus),
		decoder.Prefix([]byte("BIK"), mediaMagicBonus),
	))}
}

// Audio is the extension-only fallback for sampled audio.
type Audio struct{ *media }

// NewAudio returns the generic audio decoder.
func NewAudio(opts Options) *Audio {
	return &Audio{newMedia(opts, decoder.Descriptor{
		ID:             "audio",
		Name:           "Audio (generic)",
		Extensions:     []string{"wav", "ogg", "mp3", "flac", "voc"},
		StandardFormat: true,
		Requires:       []capability.Capability{capability.Audio},
	}, player.KindSampled, nil)}
}
