package formats

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

const (
	textBOMBonus       = 25
	textPrintableBonus = 10
	textSniffBytes     = 512
	printableRatio     = 0.95
)

var textDescriptor = decoder.Describe(decoder.Descriptor{
	ID:   "text",
	Name: "Plain text",
	Extensions: []string{
		"txt", "ini", "cfg", "log", "nfo", "md", "csv", "json", "xml", "lua", "htm", "html",
	},
	StandardFormat: true,
})

var boms = [][]byte{{0xEF, 0xBB, 0xBF}, {0xFF, 0xFE}, {0xFE, 0xFF}}

// Text decodes plain text. A byte order mark selects the Unicode encoding;
// otherwise valid UTF-8 is kept and anything else goes through the
// configured legacy charset. Output is NFC normalized with LF line endings.
type Text struct {
	maxBytes int64
	fallback encoding.Encoding
}

// NewText returns the text decoder. Unknown charset names fall back to
// Windows-1252.
func NewText(opts Options) *Text {
	opts = opts.withDefaults()
	enc, err := htmlindex.Get(opts.TextCharset)
	if err != nil {
		opts.Logger.Warn("unknown text charset, using windows-1252", "charset", opts.TextCharset)
		enc = charmap.Windows1252
	}
	return &Text{maxBytes: opts.MaxTextBytes, fallback: enc}
}

func (*Text) Descriptor() decoder.Descriptor { return textDescriptor }

func (*Text) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(textDescriptor, s, ctx, sniffText)
}

func (d *Text) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	const id = "text"
	if s.Len() > d.maxBytes {
		return nil, fail(id, "read", fmt.Errorf("%w: %d bytes exceeds text limit %d",
			decoder.ErrBoundsViolation, s.Len(), d.maxBytes))
	}
	data, err := s.ReadAll()
	if err != nil {
		return nil, fail(id, "read", err)
	}

	fallback := xunicode.UTF8.NewDecoder()
	if !hasBOM(data) && !utf8.Valid(data) {
		fallback = d.fallback.NewDecoder()
	}
	out, _, err := transform.Bytes(xunicode.BOMOverride(fallback), data)
	if err != nil {
		return nil, fail(id, "transcode", err)
	}

	content := norm.NFC.String(string(out))
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return &artifact.Text{Content: content}, nil
}

func hasBOM(data []byte) bool {
	for _, b := range boms {
		if bytes.HasPrefix(data, b) {
			return true
		}
	}
	return false
}

// sniffText awards the BOM bonus, or a smaller one when the head of the
// stream is almost entirely printable UTF-8 with no NULs.
func sniffText(s *stream.Stream) int {
	head, err := s.Peek(int(min(s.Remaining(), textSniffBytes)))
	if err != nil || len(head) == 0 {
		return 0
	}
	if hasBOM(head) {
		return textBOMBonus
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return 0
	}

	var printable, total int
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		head = head[size:]
		if r == utf8.RuneError && size == 1 && len(head) < utf8.UTFMax-1 {
			// Possibly a rune cut at the sniff boundary.
			break
		}
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total > 0 && float64(printable)/float64(total) >= printableRatio {
		return textPrintableBonus
	}
	return 0
}
