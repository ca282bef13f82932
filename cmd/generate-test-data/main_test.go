package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/testutil"
)

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	written, err := generate(dir)
	require.NoError(t, err)
	assert.Len(t, written, len(samples()))
	for _, p := range written {
		assert.True(t, testutil.FileExists(p), p)
	}

	pal, err := palette.Load(filepath.Join(dir, "game.pal"))
	require.NoError(t, err)
	assert.True(t, pal.Complete())
}
