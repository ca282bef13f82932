package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/dispatch"
	"github.com/MeKo-Tech/datpeek/internal/formats"
	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/player"
	"github.com/MeKo-Tech/datpeek/internal/registry"
	"github.com/MeKo-Tech/datpeek/internal/testutil"
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	opts := formats.DefaultOptions()
	opts.Player = player.Options{Sleep: func(time.Duration) {}}
	reg, err := registry.New(capability.Full(), nil, formats.All(opts)...)
	require.NoError(t, err)
	return dispatch.New(reg, nil)
}

// archive lays out a small extracted sprite pak.
func archive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteEntry(t, dir, "hero.spr", testutil.Sprite(2, 1, []byte{3, 7}))
	testutil.WriteEntry(t, dir, "notes.txt", []byte("hello world\r\n"))
	testutil.WriteEntry(t, dir, "blob.bin", []byte{0x01, 0x00, 0x02, 0x00, 0x03})
	testutil.WriteEntry(t, dir, filepath.Join("sfx", "step.wav"), testutil.WAV(11025, 1, 8, 32))
	return dir
}

func spritePak() decoder.Context {
	return decoder.Context{Container: formats.ContainerSpritePak, Palette: palette.Grayscale()}
}

func byName(t *testing.T, res *Result) map[string]*EntryReport {
	t.Helper()
	out := make(map[string]*EntryReport)
	for _, e := range res.Entries {
		require.NotNil(t, e)
		out[filepath.Base(e.Path)] = e
	}
	return out
}

func TestRun_NoFiles(t *testing.T) {
	_, err := Run(context.Background(), newDispatcher(t), []string{t.TempDir()}, &Config{Recursive: true})
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestRun_NilDispatcher(t *testing.T) {
	_, err := Run(context.Background(), nil, []string{"x"}, &Config{})
	require.Error(t, err)
}

func TestRun_InvalidPath(t *testing.T) {
	_, err := Run(context.Background(), newDispatcher(t), []string{filepath.Join(t.TempDir(), "nope")}, &Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover files")
}

func TestRun_DecodesArchive(t *testing.T) {
	dir := archive(t)
	res, err := Run(context.Background(), newDispatcher(t), []string{dir}, &Config{
		Recursive: true,
		Workers:   3,
		Context:   spritePak(),
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 4)
	assert.Equal(t, res.Paths, []string{
		filepath.Join(dir, "blob.bin"),
		filepath.Join(dir, "hero.spr"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "sfx", "step.wav"),
	})
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, res.WorkerCount)

	entries := byName(t, res)

	hero := entries["hero.spr"]
	assert.True(t, hero.OK())
	assert.Equal(t, "sprite", hero.Decoder)
	assert.Equal(t, "image", hero.Kind)
	assert.Equal(t, 2, hero.Width)
	assert.Equal(t, 1, hero.Height)
	assert.Len(t, hero.Digest, 64)
	assert.NotEmpty(t, hero.RequestID)

	notes := entries["notes.txt"]
	assert.Equal(t, "text", notes.Decoder)
	assert.Equal(t, len("hello world\n"), notes.TextBytes)

	step := entries["step.wav"]
	assert.Equal(t, "riff-wave", step.Decoder)
	assert.Equal(t, "wav", step.Media)

	blob := entries["blob.bin"]
	assert.False(t, blob.OK())
	assert.Equal(t, "no_candidate", blob.Reason)

	stats := res.Stats()
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
}

func TestRun_IdentifyOnly(t *testing.T) {
	res, err := Run(context.Background(), newDispatcher(t), []string{archive(t)}, &Config{
		Recursive:    true,
		IdentifyOnly: true,
		Context:      spritePak(),
	})
	require.NoError(t, err)
	hero := byName(t, res)["hero.spr"]
	assert.Equal(t, "sprite", hero.Decoder)
	assert.GreaterOrEqual(t, hero.Score, 75)
	assert.Empty(t, hero.Kind, "nothing is decoded")
	assert.Empty(t, hero.RequestID)
}

func TestRun_MissingPaletteIsReported(t *testing.T) {
	res, err := Run(context.Background(), newDispatcher(t), []string{archive(t)}, &Config{
		Recursive: true,
		Context:   decoder.Context{Container: formats.ContainerSpritePak},
	})
	require.NoError(t, err)
	hero := byName(t, res)["hero.spr"]
	assert.False(t, hero.OK())
	assert.Equal(t, "no_candidate", hero.Reason)
	require.NotEmpty(t, hero.Failures)
	assert.Contains(t, hero.Failures[0], "missing palette")
}

func TestRun_ThumbnailsAndExport(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteEntry(t, dir, "big.spr", testutil.Sprite(40, 20, make([]byte, 800)))
	testutil.WriteEntry(t, dir, "notes.txt", []byte("hi"))
	out := filepath.Join(t.TempDir(), "out")

	res, err := Run(context.Background(), newDispatcher(t), []string{dir}, &Config{
		ThumbnailSize: 10,
		OutputDir:     out,
		Context:       spritePak(),
	})
	require.NoError(t, err)
	entries := byName(t, res)

	big := entries["big.spr"]
	assert.Equal(t, 10, big.Width)
	assert.Equal(t, 5, big.Height)
	assert.True(t, strings.HasPrefix(filepath.Base(big.Output), "big-"))
	assert.Equal(t, ".png", filepath.Ext(big.Output))
	assert.True(t, testutil.FileExists(big.Output))

	notes := entries["notes.txt"]
	data, err := os.ReadFile(notes.Output)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestRun_WritesMetrics(t *testing.T) {
	metrics := filepath.Join(t.TempDir(), "datpeek.prom")
	_, err := Run(context.Background(), newDispatcher(t), []string{archive(t)}, &Config{
		Recursive:   true,
		Context:     spritePak(),
		MetricsFile: metrics,
	})
	require.NoError(t, err)
	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "datpeek_decodes_total")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, newDispatcher(t), []string{archive(t)}, &Config{Recursive: true, Workers: 2})
	require.ErrorIs(t, err, context.Canceled)
}

type recordingProgress struct {
	mu       sync.Mutex
	total    int
	last     int
	errors   []string
	complete bool
}

func (r *recordingProgress) OnStart(total int) { r.total = total }

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = current
}

func (r *recordingProgress) OnComplete() { r.complete = true }

func (r *recordingProgress) OnError(path string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, filepath.Base(path))
}

func TestRun_ReportsProgress(t *testing.T) {
	progress := &recordingProgress{}
	_, err := Run(context.Background(), newDispatcher(t), []string{archive(t)}, &Config{
		Recursive: true,
		Context:   spritePak(),
		Progress:  progress,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, progress.total)
	assert.Equal(t, 4, progress.last)
	assert.True(t, progress.complete)
	assert.Equal(t, []string{"blob.bin"}, progress.errors)
}

func TestProcessEntry_Unreadable(t *testing.T) {
	_, err := processEntry(newDispatcher(t), filepath.Join(t.TempDir(), "gone.spr"), &Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}
