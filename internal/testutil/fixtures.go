package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"hash/crc32"
	"image/color"

	"github.com/disintegration/imaging"
)

// Sprite builds a palette-indexed sprite entry:
// "SIZE", width u16le, height u16le, "DATA", indices.
func Sprite(width, height uint16, indices []byte) []byte {
	out := []byte("SIZE")
	out = binary.LittleEndian.AppendUint16(out, width)
	out = binary.LittleEndian.AppendUint16(out, height)
	out = append(out, "DATA"...)
	return append(out, indices...)
}

// LengthText builds a u32le length-prefixed text entry. declared overrides
// the length field when non-negative.
func LengthText(body []byte, declared int64) []byte {
	n := uint32(len(body))
	if declared >= 0 {
		n = uint32(declared)
	}
	out := binary.LittleEndian.AppendUint32(nil, n)
	return append(out, body...)
}

// WAV builds a PCM RIFF/WAVE file holding frames of silence.
func WAV(sampleRate, channels, bits, frames int) []byte {
	data := make([]byte, frames*channels*bits/8)

	var fmtChunk bytes.Buffer
	_ = binary.Write(&fmtChunk, binary.LittleEndian, struct {
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{
		AudioFormat:   1,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bits / 8),
		BlockAlign:    uint16(channels * bits / 8),
		BitsPerSample: uint16(bits),
	})

	return RIFF("WAVE", Chunk("fmt ", fmtChunk.Bytes()), Chunk("data", data))
}

// Chunk encodes a RIFF chunk, padding odd sizes.
func Chunk(id string, body []byte) []byte {
	out := []byte(id)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

// RIFF wraps chunks in a RIFF header with the given form type.
func RIFF(form string, chunks ...[]byte) []byte {
	var body []byte
	body = append(body, form...)
	for _, c := range chunks {
		body = append(body, c...)
	}
	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	return append(out, body...)
}

// MIDI builds a standard MIDI file with one empty track per count.
func MIDI(tracks int) []byte {
	out := []byte("MThd")
	out = binary.BigEndian.AppendUint32(out, 6)
	format := uint16(0)
	if tracks > 1 {
		format = 1
	}
	out = binary.BigEndian.AppendUint16(out, format)
	out = binary.BigEndian.AppendUint16(out, uint16(tracks))
	out = binary.BigEndian.AppendUint16(out, 96)
	for range tracks {
		out = append(out, "MTrk"...)
		out = binary.BigEndian.AppendUint32(out, 4)
		out = append(out, 0x00, 0xFF, 0x2F, 0x00)
	}
	return out
}

// AVI builds a minimal AVI header.
func AVI() []byte {
	return RIFF("AVI ", Chunk("LIST", []byte("hdrlavih")))
}

// Image encodes a w×h image filled with c in the given format.
func Image(w, h int, c color.Color, format imaging.Format) []byte {
	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNGHeader builds a PNG whose IHDR claims width x height at 16-bit RGBA
// but whose IDAT carries a single compressed row byte.
func PNGHeader(width, height uint32) []byte {
	ihdr := binary.BigEndian.AppendUint32(nil, width)
	ihdr = binary.BigEndian.AppendUint32(ihdr, height)
	ihdr = append(ihdr, 16, 6, 0, 0, 0)

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	_, _ = zw.Write([]byte{0})
	_ = zw.Close()

	out := []byte("\x89PNG\r\n\x1a\n")
	out = pngChunk(out, "IHDR", ihdr)
	out = pngChunk(out, "IDAT", idat.Bytes())
	return pngChunk(out, "IEND", nil)
}

func pngChunk(out []byte, typ string, body []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(body)))
	crc := crc32.NewIEEE()
	_, _ = crc.Write([]byte(typ))
	_, _ = crc.Write(body)
	out = append(out, typ...)
	out = append(out, body...)
	return binary.BigEndian.AppendUint32(out, crc.Sum32())
}

// Checker returns a w×h black and white checkerboard.
func Checker(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

// PDF builds a single-font PDF with one page per entry in pages. Cross
// reference offsets are computed so strict readers accept the file.
func PDF(pages ...string) []byte {
	var objs []string
	n := len(pages)
	// 1 catalog, 2 pages, 3 font, then (page, content) pairs.
	kids := ""
	for i := range n {
		kids += fmt.Sprintf("%d 0 R ", 4+i*2)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}
