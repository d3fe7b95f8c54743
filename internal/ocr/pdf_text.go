package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText reads embedded page text in-process with ledongthuc/pdf. Each
// text-show operator becomes one token and tokens are joined with a single
// space in content-stream order, so adjacent table cells never fuse.
type PDFText struct{}

func NewPDFText() PDFText { return PDFText{} }

func (PDFText) Open(_ context.Context, path string) (PageTexts, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfTextDoc{f: f, r: r}, nil
}

type pdfTextDoc struct {
	f *os.File
	r *pdf.Reader
}

func (d *pdfTextDoc) Close() error { return d.f.Close() }

func (d *pdfTextDoc) PageText(_ context.Context, page int) (text string, err error) {
	if page < 1 || page > d.r.NumPage() {
		return "", fmt.Errorf("page %d out of range 1..%d", page, d.r.NumPage())
	}
	p := d.r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	// the content stream parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read page %d text: %v", page, rec)
		}
	}()
	return strings.Join(pageTokens(p), " "), nil
}

// pageTokens returns the decoded string of every text-show operator on p.
func pageTokens(p pdf.Page) []string {
	fonts := make(map[string]pdf.TextEncoding)
	for _, name := range p.Fonts() {
		fonts[name] = p.Font(name).Encoder()
	}

	var (
		enc    pdf.TextEncoding
		tokens []string
	)
	decode := func(raw string) string {
		if enc == nil {
			return raw
		}
		return enc.Decode(raw)
	}
	emit := func(s string) {
		if strings.TrimSpace(s) != "" {
			tokens = append(tokens, s)
		}
	}
	walk := func(strm pdf.Value) {
		pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			if n == 0 {
				return
			}
			switch op {
			case "Tf":
				enc = fonts[args[0].Name()]
			case "Tj", "'", "\"":
				emit(decode(args[n-1].RawString()))
			case "TJ":
				var b strings.Builder
				arr := args[0]
				for i := 0; i < arr.Len(); i++ {
					if el := arr.Index(i); el.Kind() == pdf.String {
						b.WriteString(decode(el.RawString()))
					}
				}
				emit(b.String())
			}
		})
	}

	contents := p.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			walk(contents.Index(i))
		}
	} else {
		walk(contents)
	}
	return tokens
}
