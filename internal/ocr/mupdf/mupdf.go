// Package mupdf renders PDF pages in-process with MuPDF.
package mupdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/pallet-scanner/internal/ocr"
)

var _ ocr.Rasterizer = (*Rasterizer)(nil)

type Rasterizer struct {
	dpi      float64
	maxPages int
}

func NewRasterizer(cfg ocr.Config) *Rasterizer {
	cfg = cfg.WithDefaults()
	return &Rasterizer{dpi: float64(cfg.DPI()), maxPages: cfg.MaxPages}
}

func (r *Rasterizer) Open(_ context.Context, path string) (ocr.PageImages, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := doc.NumPage()
	if r.maxPages > 0 && n > r.maxPages {
		n = r.maxPages
	}
	return &document{doc: doc, pages: n, dpi: r.dpi}, nil
}

type document struct {
	mu    sync.Mutex // fitz documents are not safe for concurrent use
	doc   *fitz.Document
	pages int
	dpi   float64
}

func (d *document) NumPages() int { return d.pages }

func (d *document) Render(ctx context.Context, page int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	img, err := d.doc.ImagePNG(page-1, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

func (d *document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
