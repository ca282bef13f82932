package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	cases := []struct {
		name string
		ext  string
	}{
		{"img.spr", "spr"},
		{"IMG.SPR", "spr"},
		{"dir/sub/Intro.WaV", "wav"},
		{"noext", ""},
		{"archive.tar.gz", "gz"},
	}
	for _, c := range cases {
		assert.Equal(t, c.ext, FromBytes(c.name, nil).Extension(), c.name)
	}
}

func TestLittleAndBigEndianReads(t *testing.T) {
	s := FromBytes("x.bin", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0xFF})

	v16, err := s.ReadU16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v16)

	v32, err := s.ReadU32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x06050403), v32)

	b16, err := s.ReadU16BE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0708), b16)

	b32, err := s.ReadU32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x090A0B0C), b32)

	u8, err := s.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), u8)

	assert.Equal(t, int64(0), s.Remaining())
}

func TestReadBeyondEnd(t *testing.T) {
	s := FromBytes("short.bin", []byte{1, 2, 3})

	_, err := s.ReadU32LE()
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, int64(0), s.Offset(), "failed read must not consume bytes")

	_, err = s.ReadBytes(-1)
	require.ErrorIs(t, err, ErrOutOfBounds)

	require.ErrorIs(t, s.Skip(4), ErrOutOfBounds)
	require.ErrorIs(t, s.SeekTo(4), ErrOutOfBounds)
}

func TestHugeLengthRejectedBeforeAllocation(t *testing.T) {
	s := FromBytes("tiny.bin", make([]byte, 100))

	b, err := s.ReadBytes(1 << 40)
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Nil(t, b)
	assert.Equal(t, int64(100), s.Remaining())
}

func TestPeekRestoresPosition(t *testing.T) {
	s := FromBytes("p.bin", []byte("RIFFxxxxWAVE"))
	require.NoError(t, s.Skip(8))

	b, err := s.Peek(4)
	require.NoError(t, err)
	assert.Equal(t, "WAVE", string(b))
	assert.Equal(t, int64(8), s.Offset())

	_, err = s.Peek(5)
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, int64(8), s.Offset())
}

func TestNewFromReadSeeker(t *testing.T) {
	r := bytes.NewReader([]byte("hello"))
	_, _ = r.Seek(3, io.SeekStart)

	s, err := New(r, 5, "greeting.txt")
	require.NoError(t, err)
	all, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(all))

	_, err = New(nil, 0, "x")
	require.Error(t, err)
	_, err = New(bytes.NewReader(nil), -1, "x")
	require.Error(t, err)
}

func TestSectionIsIndependent(t *testing.T) {
	s := FromBytes("doc.pdf", []byte("%PDF-1.4 body"))
	require.NoError(t, s.Skip(2))

	sec := s.Section()
	head := make([]byte, 5)
	_, err := io.ReadFull(sec, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head))
	assert.Equal(t, int64(2), s.Offset())

	tail := make([]byte, 8)
	n, err := s.ReaderAt().ReadAt(tail, 9)
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "body", string(tail[:n]))
}
