// Package stream provides the bounded, seekable byte view that decoders read
// from. A Stream is owned by its caller and is not safe for concurrent use.
package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrOutOfBounds is returned when a read or seek would cross the end of the stream.
var ErrOutOfBounds = errors.New("read beyond end of stream")

// Stream is a bounded sequence of bytes with a known length and the name of
// the archive entry it came from.
type Stream struct {
	r      io.ReadSeeker
	size   int64
	name   string
	offset int64
}

// New wraps r, which must hold exactly size bytes starting at offset 0.
func New(r io.ReadSeeker, size int64, name string) (*Stream, error) {
	if r == nil {
		return nil, errors.New("stream: nil reader")
	}
	if size < 0 {
		return nil, fmt.Errorf("stream: negative size %d", size)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("stream: rewind %s: %w", name, err)
	}
	return &Stream{r: r, size: size, name: name}, nil
}

// FromBytes returns a Stream over data.
func FromBytes(name string, data []byte) *Stream {
	return &Stream{r: bytes.NewReader(data), size: int64(len(data)), name: name}
}

// Name returns the entry name the stream was opened with.
func (s *Stream) Name() string { return s.name }

// Extension returns the lower-cased file extension without the leading dot.
func (s *Stream) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(s.name)), ".")
}

// Len returns the total length of the stream.
func (s *Stream) Len() int64 { return s.size }

// Offset returns the current read position.
func (s *Stream) Offset() int64 { return s.offset }

// Remaining returns the number of unread bytes.
func (s *Stream) Remaining() int64 { return s.size - s.offset }

// Rewind moves the read position back to the start.
func (s *Stream) Rewind() error { return s.SeekTo(0) }

// SeekTo moves the read position to the absolute offset off.
func (s *Stream) SeekTo(off int64) error {
	if off < 0 || off > s.size {
		return fmt.Errorf("seek to %d of %d: %w", off, s.size, ErrOutOfBounds)
	}
	if _, err := s.r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	s.offset = off
	return nil
}

// Skip advances the read position by n bytes.
func (s *Stream) Skip(n int64) error {
	if err := s.check(n); err != nil {
		return err
	}
	return s.SeekTo(s.offset + n)
}

// Peek returns the next n bytes without moving the read position.
func (s *Stream) Peek(n int) ([]byte, error) {
	start := s.offset
	buf, err := s.ReadBytes(n)
	if serr := s.SeekTo(start); serr != nil && err == nil {
		err = serr
	}
	return buf, err
}

// ReadBytes reads exactly n bytes. The length is checked against the
// remaining size before any buffer is allocated.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if err := s.check(int64(n)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", s.name, ErrOutOfBounds)
		}
		return nil, err
	}
	s.offset += int64(n)
	return buf, nil
}

// ReadTag reads an n-byte tag as a string. Comparisons on tags are
// case-sensitive.
func (s *Stream) ReadTag(n int) (string, error) {
	b, err := s.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadU8 reads one unsigned byte.
func (s *Stream) ReadU8() (uint8, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16LE reads a little-endian uint16.
func (s *Stream) ReadU16LE() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32LE reads a little-endian uint32.
func (s *Stream) ReadU32LE() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU16BE reads a big-endian uint16.
func (s *Stream) ReadU16BE() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadU32BE reads a big-endian uint32.
func (s *Stream) ReadU32BE() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadAll reads everything from the current position to the end.
func (s *Stream) ReadAll() ([]byte, error) {
	return s.ReadBytes(int(s.Remaining()))
}

// ReaderAt exposes the stream for libraries that need random access. Reads
// through it do not move the stream position.
func (s *Stream) ReaderAt() io.ReaderAt {
	return &readerAt{s: s}
}

// Section returns an independent io.ReadSeeker over the whole stream.
func (s *Stream) Section() *io.SectionReader {
	return io.NewSectionReader(s.ReaderAt(), 0, s.size)
}

func (s *Stream) check(n int64) error {
	if n < 0 || n > s.Remaining() {
		return fmt.Errorf("%s: need %d bytes at offset %d, %d left: %w",
			s.name, n, s.offset, s.Remaining(), ErrOutOfBounds)
	}
	return nil
}

type readerAt struct {
	s *Stream
}

func (ra *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= ra.s.size {
		return 0, io.EOF
	}
	start := ra.s.offset
	defer func() { _ = ra.s.SeekTo(start) }()

	if err := ra.s.SeekTo(off); err != nil {
		return 0, err
	}
	n := len(p)
	eof := false
	if rem := ra.s.Remaining(); int64(n) > rem {
		n = int(rem)
		eof = true
	}
	read, err := io.ReadFull(ra.s.r, p[:n])
	if err != nil {
		return read, err
	}
	if eof {
		return read, io.EOF
	}
	return read, nil
}
