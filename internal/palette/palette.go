// Package palette holds 256-entry color tables used by indexed-color formats
// and the loaders for the palette files that ship next to them.
package palette

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
)

// Size is the number of entries an indexed image expects.
const Size = 256

// ErrFormat is returned for palette data that none of the loaders accept.
var ErrFormat = errors.New("palette: unrecognized palette data")

// Palette maps an 8-bit index to a packed 0xAARRGGBB color.
type Palette []uint32

// Complete reports whether p can resolve every 8-bit index.
func (p Palette) Complete() bool { return len(p) >= Size }

// Grayscale returns a linear black-to-white palette.
func Grayscale() Palette {
	p := make(Palette, Size)
	for i := range p {
		v := uint8(i)
		p[i] = artifact.Pack(v, v, v, 255)
	}
	return p
}

// FromRGB builds a palette from packed r,g,b triplets. Entries beyond the
// data are left transparent black.
func FromRGB(data []byte) Palette {
	p := make(Palette, Size)
	for i := 0; i < Size && i*3+2 < len(data); i++ {
		p[i] = artifact.Pack(data[i*3], data[i*3+1], data[i*3+2], 255)
	}
	return p
}

// Parse detects the palette flavour and decodes it. Supported inputs are
// Microsoft RIFF PAL, JASC-PAL text and raw 768-byte RGB tables (Photoshop
// ACT files, which may carry a 4-byte trailer, included).
func Parse(data []byte) (Palette, error) {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && string(data[8:12]) == "PAL ":
		return parseRIFF(data)
	case bytes.HasPrefix(data, []byte("JASC-PAL")):
		return parseJASC(data)
	case len(data) == Size*3 || len(data) == Size*3+4:
		return FromRGB(data[:Size*3]), nil
	default:
		return nil, fmt.Errorf("%w (%d bytes)", ErrFormat, len(data))
	}
}

// Load reads and parses a palette file.
func Load(path string) (Palette, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: palette path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("read palette %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse palette %s: %w", path, err)
	}
	return p, nil
}

// parseRIFF decodes "RIFF <size> PAL data <size> <version u16> <count u16> <r g b flags>*".
func parseRIFF(data []byte) (Palette, error) {
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrFormat, id)
		}
		if id == "data" {
			if size < 4 {
				return nil, fmt.Errorf("%w: short data chunk", ErrFormat)
			}
			count := int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			entries := data[body+4 : body+size]
			if count*4 > len(entries) {
				return nil, fmt.Errorf("%w: %d entries declared, %d bytes present", ErrFormat, count, len(entries))
			}
			p := make(Palette, count)
			for i := range p {
				e := entries[i*4:]
				p[i] = artifact.Pack(e[0], e[1], e[2], 255)
			}
			return p, nil
		}
		off = body + size + size%2
	}
	return nil, fmt.Errorf("%w: RIFF PAL without data chunk", ErrFormat)
}

// parseJASC decodes the Paint Shop Pro text format:
//
//	JASC-PAL
//	0100
//	256
//	r g b
//	...
func parseJASC(data []byte) (Palette, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: truncated JASC-PAL header", ErrFormat)
	}
	count, err := strconv.Atoi(lines[2])
	if err != nil || count < 0 || count > len(lines)-3 {
		return nil, fmt.Errorf("%w: bad JASC-PAL entry count %q", ErrFormat, lines[2])
	}
	p := make(Palette, count)
	for i := 0; i < count; i++ {
		f := strings.Fields(lines[3+i])
		if len(f) < 3 {
			return nil, fmt.Errorf("%w: JASC-PAL line %d", ErrFormat, 4+i)
		}
		var rgb [3]uint8
		for c := range rgb {
			v, err := strconv.ParseUint(f[c], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: JASC-PAL line %d: %v", ErrFormat, 4+i, err)
			}
			rgb[c] = uint8(v)
		}
		p[i] = artifact.Pack(rgb[0], rgb[1], rgb[2], 255)
	}
	return p, nil
}
