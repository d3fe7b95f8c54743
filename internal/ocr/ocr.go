package ocr

import (
	"context"
	"log/slog"
	"math"
)

type Config struct {
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	Whitelist     string // e.g. "0123456789()"; empty = no restriction

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	Scale      float64 // PDF render scale relative to 72 DPI, default 2.0
	ImageScale float64 // resize factor for image inputs, default 1.0
	MaxPages   int     // 0 = no limit
}

// WithDefaults fills zero fields with the defaults documented on Config.
func (c Config) WithDefaults() Config {
	if c.Pdfinfo == "" {
		c.Pdfinfo = "pdfinfo"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	if c.Scale <= 0 {
		c.Scale = 2.0
	}
	if c.ImageScale <= 0 {
		c.ImageScale = 1.0
	}
	return c
}

// DPI is the rasterization resolution implied by Scale.
func (c Config) DPI() int {
	return int(math.Round(72 * c.Scale))
}

// PageImages is an opened document that can rasterize its pages.
// Pages are 1-based.
type PageImages interface {
	NumPages() int
	Render(ctx context.Context, page int) ([]byte, error)
	Close() error
}

// Rasterizer opens documents for page rendering. Render returns PNG bytes.
type Rasterizer interface {
	Open(ctx context.Context, path string) (PageImages, error)
}

// PageTexts exposes the machine-encoded text already present on each page.
type PageTexts interface {
	PageText(ctx context.Context, page int) (string, error)
	Close() error
}

// TextSource opens documents for embedded text reading.
type TextSource interface {
	Open(ctx context.Context, path string) (PageTexts, error)
}

// Engine turns a page bitmap into text.
type Engine interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// NoText is a TextSource for inputs without embedded text (images, or when disabled).
type NoText struct{}

func (NoText) Open(context.Context, string) (PageTexts, error) { return noText{}, nil }

type noText struct{}

func (noText) PageText(context.Context, int) (string, error) { return "", nil }
func (noText) Close() error                                  { return nil }

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func capPages(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}
