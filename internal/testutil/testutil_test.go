package testutil

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEntry(t *testing.T) {
	dir := t.TempDir()
	path := WriteEntry(t, dir, "sub/a.spr", []byte{1})
	assert.True(t, FileExists(path))
	assert.True(t, DirExists(filepath.Join(dir, "sub")))
	assert.False(t, DirExists(path))
}

func TestSpriteLayout(t *testing.T) {
	b := Sprite(2, 1, []byte{3, 7})
	assert.Equal(t, "SIZE", string(b[0:4]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[4:6]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[6:8]))
	assert.Equal(t, "DATA", string(b[8:12]))
	assert.Equal(t, []byte{3, 7}, b[12:])
}

func TestLengthText(t *testing.T) {
	b := LengthText([]byte("abc"), -1)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b))
	b = LengthText([]byte("abc"), 99)
	assert.Equal(t, uint32(99), binary.LittleEndian.Uint32(b))
}

func TestWAVHeader(t *testing.T) {
	b := WAV(22050, 1, 16, 22050)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, uint32(len(b)-8), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, "fmt ", string(b[12:16]))
}

func TestImageAndPDF(t *testing.T) {
	png := Image(4, 3, color.White, imaging.PNG)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	pdf := PDF("Hello", "World")
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-1.4")))
	assert.Contains(t, string(pdf), "/Count 2")
	assert.True(t, bytes.HasSuffix(pdf, []byte("%%EOF\n")))
}

func TestPNGHeader(t *testing.T) {
	b := PNGHeader(8192, 4096)
	require.Greater(t, len(b), 24)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, "IHDR", string(b[12:16]))
	assert.Equal(t, uint32(8192), binary.BigEndian.Uint32(b[16:20]))
	assert.Equal(t, uint32(4096), binary.BigEndian.Uint32(b[20:24]))
	assert.True(t, bytes.HasSuffix(b[:len(b)-4], []byte("IEND")))
}
