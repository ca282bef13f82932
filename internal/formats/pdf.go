package formats

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/datpeek/internal/artifact"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
	"github.com/MeKo-Tech/datpeek/internal/stream"
)

const pdfMagicBonus = 50

var pdfDescriptor = decoder.Describe(decoder.Descriptor{
	ID:             "pdf",
	Name:           "PDF document",
	Extensions:     []string{"pdf"},
	StandardFormat: true,
})

// pdfcpu writes a config directory on first use unless told otherwise.
var disablePDFConfig sync.Once

// PDF validates documents with pdfcpu and extracts their text layer.
type PDF struct {
	maxPages int
}

// NewPDF returns the PDF decoder.
func NewPDF(opts Options) *PDF {
	disablePDFConfig.Do(api.DisableConfigDir)
	return &PDF{maxPages: opts.withDefaults().MaxPDFPages}
}

func (*PDF) Descriptor() decoder.Descriptor { return pdfDescriptor }

func (*PDF) MatchRating(s *stream.Stream, ctx decoder.Context) int {
	return decoder.Rate(pdfDescriptor, s, ctx, decoder.Prefix([]byte("%PDF-"), pdfMagicBonus))
}

func (d *PDF) Decode(s *stream.Stream, _ decoder.Context) (artifact.Artifact, error) {
	const id = "pdf"
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(s.Section(), conf)
	if err != nil {
		return nil, fail(id, "validate", err)
	}

	r, err := pdf.NewReader(s.ReaderAt(), s.Len())
	if err != nil {
		return nil, fail(id, "open", err)
	}

	var b strings.Builder
	limit := min(pages, r.NumPage(), d.maxPages)
	for i := 1; i <= limit; i++ {
		text, err := pageText(r, i)
		if err != nil {
			return nil, fail(id, fmt.Sprintf("page %d", i), err)
		}
		fmt.Fprintf(&b, "--- page %d ---\n%s\n", i, strings.TrimSpace(text))
	}
	if pages > limit {
		fmt.Fprintf(&b, "... %d more pages\n", pages-limit)
	}
	return &artifact.Text{Content: b.String()}, nil
}

func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("content stream: %v", rec)
		}
	}()
	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	return page.GetPlainText(fonts)
}
