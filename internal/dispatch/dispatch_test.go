package dispatch

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/formats"
	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/player"
	"github.com/MeKo-Tech/datpeek/internal/registry"
	"github.com/MeKo-Tech/datpeek/internal/stream"
	"github.com/MeKo-Tech/datpeek/internal/testutil"
)

// fixed is a synthetic decoder with a constant score and scripted decode.
type fixed struct {
	id      string
	score   int
	err     error
	panics  bool
	decoded *int
}

func (f *fixed) Descriptor() decoder.Descriptor {
	return decoder.Descriptor{ID: f.id, Name: f.id, Extensions: []string{f.id}}
}

func (f *fixed) MatchRating(*stream.Stream, decoder.Context) int { return f.score }

func (f *fixed) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	if f.decoded != nil {
		*f.decoded++
	}
	if f.panics {
		panic("corrupt table")
	}
	if f.err != nil {
		return nil, f.err
	}
	if s.Offset() != 0 {
		return nil, errors.New("stream not rewound")
	}
	_, _ = s.ReadBytes(int(s.Remaining()))
	return &artifact.Text{Content: f.id}, nil
}

func newDispatcher(t *testing.T, decs ...decoder.Decoder) *Dispatcher {
	t.Helper()
	reg, err := registry.New(capability.Full(), nil, decs...)
	require.NoError(t, err)
	return New(reg, nil)
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestRankTieBreakByRegistrationOrder(t *testing.T) {
	d := newDispatcher(t,
		&fixed{id: "first", score: 50},
		&fixed{id: "low", score: 10},
		&fixed{id: "second", score: 50},
		&fixed{id: "top", score: 90},
	)
	ranked := d.Rank(stream.FromBytes("x", []byte("data")), decoder.Context{})
	assert.Equal(t, []string{"top", "first", "second", "low"}, ids(ranked))

	best, err := d.Identify(stream.FromBytes("x", []byte("data")), decoder.Context{})
	require.NoError(t, err)
	assert.Equal(t, "top", best.ID)
}

func TestIdentifyNoCandidate(t *testing.T) {
	d := newDispatcher(t, &fixed{id: "a"}, &fixed{id: "b"})
	_, err := d.Identify(stream.FromBytes("x", []byte("data")), decoder.Context{})
	require.ErrorIs(t, err, decoder.ErrNoCandidate)
}

func TestDisabledDecodersAreNeverEvaluated(t *testing.T) {
	reg, err := registry.New(capability.Full(), []string{"greedy"},
		&fixed{id: "greedy", score: 100},
		&fixed{id: "modest", score: 5},
	)
	require.NoError(t, err)
	best, err := New(reg, nil).Identify(stream.FromBytes("x", nil), decoder.Context{})
	require.NoError(t, err)
	assert.Equal(t, "modest", best.ID)
}

func TestDecodeFallsThrough(t *testing.T) {
	var calls int
	d := newDispatcher(t,
		&fixed{id: "broken", score: 80, err: &decoder.Error{Decoder: "broken", Op: "header", Err: decoder.ErrMalformedLength}},
		&fixed{id: "panicky", score: 70, panics: true},
		&fixed{id: "works", score: 60, decoded: &calls},
		&fixed{id: "never", score: 50},
	)
	s := stream.FromBytes("x", []byte("payload"))
	res, err := d.Decode(s, decoder.Context{})
	require.NoError(t, err)

	assert.Equal(t, "works", res.Decoder.ID)
	assert.Equal(t, "works", res.Artifact.(*artifact.Text).Content)
	assert.Equal(t, 1, calls)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "broken", res.Failures[0].Decoder)
	assert.ErrorIs(t, res.Failures[0].Err, decoder.ErrMalformedLength)
	assert.Contains(t, res.Failures[1].Err.Error(), "panic: corrupt table")
	assert.NotEmpty(t, res.RequestID)
}

func TestDecodeAllFail(t *testing.T) {
	d := newDispatcher(t,
		&fixed{id: "a", score: 30, err: decoder.ErrMissingPalette},
		&fixed{id: "b", score: 20, err: decoder.ErrIncompatibleStream},
		&fixed{id: "zero", score: 0},
	)
	res, err := d.Decode(stream.FromBytes("x", []byte("payload")), decoder.Context{})
	require.ErrorIs(t, err, decoder.ErrNoCandidate)
	assert.ErrorIs(t, err, decoder.ErrMissingPalette)
	assert.ErrorIs(t, err, decoder.ErrIncompatibleStream)
	require.NotNil(t, res)
	assert.Len(t, res.Failures, 2)
	assert.Nil(t, res.Artifact)
}

func TestDecodeNothingScores(t *testing.T) {
	var calls int
	d := newDispatcher(t, &fixed{id: "a", decoded: &calls})
	_, err := d.Decode(stream.FromBytes("x", []byte("?")), decoder.Context{})
	require.ErrorIs(t, err, decoder.ErrNoCandidate)
	assert.Zero(t, calls, "zero-score candidates are not tried")
}

func TestRequestIDsAreUnique(t *testing.T) {
	d := newDispatcher(t, &fixed{id: "a", score: 1})
	r1, err := d.Decode(stream.FromBytes("x", nil), decoder.Context{})
	require.NoError(t, err)
	r2, err := d.Decode(stream.FromBytes("x", nil), decoder.Context{})
	require.NoError(t, err)
	assert.NotEqual(t, r1.RequestID, r2.RequestID)
}

func builtin(t *testing.T) *Dispatcher {
	t.Helper()
	opts := formats.DefaultOptions()
	opts.Player = player.Options{Sleep: func(time.Duration) {}}
	reg, err := registry.New(capability.Full(), nil, formats.All(opts)...)
	require.NoError(t, err)
	return New(reg, nil)
}

func TestBuiltinSpriteEndToEnd(t *testing.T) {
	d := builtin(t)
	pal := palette.Grayscale()
	ctx := decoder.Context{Container: formats.ContainerSpritePak, Palette: pal}
	s := stream.FromBytes("img.spr", testutil.Sprite(2, 1, []byte{3, 7}))

	best, err := d.Identify(s, ctx)
	require.NoError(t, err)
	assert.Equal(t, "sprite", best.ID)
	assert.GreaterOrEqual(t, best.Score, 75)

	res, err := d.Decode(s, ctx)
	require.NoError(t, err)
	img := res.Artifact.(*artifact.Image)
	assert.Equal(t, []uint32{pal[3], pal[7]}, img.Pixels)
}

func TestBuiltinForeignContainerSkipsSprite(t *testing.T) {
	d := builtin(t)
	ctx := decoder.Context{Container: "voice-pak", Palette: palette.Grayscale()}
	s := stream.FromBytes("img.spr", testutil.Sprite(2, 1, []byte{3, 7}))

	for _, c := range d.Rank(s, ctx) {
		if c.ID == "sprite" {
			assert.Zero(t, c.Score)
		}
	}
}

func TestBuiltinWavePreferred(t *testing.T) {
	d := builtin(t)
	s := stream.FromBytes("a.wav", testutil.WAV(11025, 1, 8, 64))
	ranked := d.Rank(s, decoder.Context{})
	assert.Equal(t, "riff-wave", ranked[0].ID)

	res, err := d.Decode(s, decoder.Context{})
	require.NoError(t, err)
	assert.Equal(t, artifact.KindAudio, res.Artifact.Kind())
	require.NoError(t, artifact.Release(res.Artifact))
}

func TestBuiltinMissingPaletteFallsThrough(t *testing.T) {
	d := builtin(t)
	// Without a palette the sprite fails and nothing else claims the bytes.
	ctx := decoder.Context{Container: formats.ContainerSpritePak}
	res, err := d.Decode(stream.FromBytes("img.spr", testutil.Sprite(2, 1, []byte{3, 7})), ctx)
	require.ErrorIs(t, err, decoder.ErrNoCandidate)
	require.NotEmpty(t, res.Failures)
	assert.Equal(t, "sprite", res.Failures[0].Decoder)
	assert.ErrorIs(t, res.Failures[0].Err, decoder.ErrMissingPalette)
}

func TestBuiltinThumbnail(t *testing.T) {
	d := builtin(t)
	ctx := decoder.Context{Container: formats.ContainerSpritePak, Palette: palette.Grayscale()}
	s := stream.FromBytes("big.spr", testutil.Sprite(40, 20, make([]byte, 800)))
	res, err := d.DecodeThumbnail(s, ctx, 10)
	require.NoError(t, err)
	img := res.Artifact.(*artifact.Image)
	assert.Equal(t, 10, img.Width)
	assert.Equal(t, 5, img.Height)

	text, err := d.DecodeThumbnail(stream.FromBytes("a.scr", testutil.LengthText([]byte("x;y"), -1)), decoder.Context{}, 10)
	require.NoError(t, err)
	assert.Equal(t, artifact.KindText, text.Artifact.Kind())
}

func TestRankIsDeterministic(t *testing.T) {
	d := builtin(t)
	properties := gopter.NewProperties(nil)
	properties.Property("ranking is a pure function of bytes, name and context", prop.ForAll(
		func(data []byte, ext string, pak bool) bool {
			ctx := decoder.Context{Palette: palette.Grayscale()}
			if pak {
				ctx.Container = formats.ContainerSpritePak
			}
			s := stream.FromBytes("entry."+ext, data)
			a := d.Rank(s, ctx)
			b := d.Rank(s, ctx)
			if len(a) != len(b) || s.Offset() != 0 {
				return false
			}
			for i := range a {
				if a[i].ID != b[i].ID || a[i].Score != b[i].Score {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
		gen.OneConstOf("spr", "wav", "txt", "png", "pdf", "bin"),
		gen.Bool(),
	))
	properties.TestingRun(t)
}

func TestWriteMetrics(t *testing.T) {
	d := newDispatcher(t, &fixed{id: "metric", score: 5})
	_, err := d.Decode(stream.FromBytes("x", nil), decoder.Context{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "datpeek.prom")
	require.NoError(t, WriteMetrics(path))
	assert.True(t, testutil.FileExists(path))
}
