package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
)

func TestWriteArtifact_Image(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	img, err := artifact.NewImage([]uint32{artifact.Pack(255, 0, 0, 255), artifact.Pack(0, 0, 255, 255)}, 2, 1)
	require.NoError(t, err)

	path, err := WriteArtifact(img, dir, "archive/hero.spr")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hero.png"), path)

	saved, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Bounds().Dx())
	r, _, b, _ := saved.At(1, 0).RGBA()
	assert.Zero(t, r)
	assert.Equal(t, uint32(0xffff), b)
}

func TestWriteArtifact_Text(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteArtifact(&artifact.Text{Content: "a;\nb"}, dir, "intro.scr")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a;\nb", string(data))
}

func TestWriteArtifact_MediaAndEmptyName(t *testing.T) {
	path, err := WriteArtifact(&artifact.AudioStream{}, t.TempDir(), "a.wav")
	require.NoError(t, err)
	assert.Empty(t, path)

	dir := t.TempDir()
	path, err = WriteArtifact(&artifact.Text{Content: "x"}, dir, ".hidden")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "entry.txt"), path)
}
