// Package backends builds the scan collaborators selected by configuration.
package backends

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
	"github.com/joseph-ayodele/pallet-scanner/internal/ocr"
	"github.com/joseph-ayodele/pallet-scanner/internal/ocr/mupdf"
	"github.com/joseph-ayodele/pallet-scanner/internal/ocr/tesseract"
	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

// OCRConfig translates application settings into adapter settings.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdfinfo:       c.Pdfinfo,
		Pdftoppm:      c.Pdftoppm,
		Pdftotext:     c.Pdftotext,
		Tesseract:     c.Tesseract,
		TesseractLang: c.Lang,
		TessdataDir:   c.TessdataDir,
		Whitelist:     c.Whitelist,
		PSM:           c.PSM,
		OEM:           c.OEM,
		Scale:         c.Scale,
		ImageScale:    c.ImageScale,
		MaxPages:      c.MaxPages,
	}.WithDefaults()
}

// Build wires the renderer, engine and embedded-text reader named in cfg.
func Build(cfg common.OCRConfig, logger *slog.Logger) (scan.Collaborators, error) {
	oc := OCRConfig(cfg)
	deps := scan.Collaborators{ImageRasterizer: ocr.NewImageRasterizer(oc)}

	switch cfg.Renderer {
	case "", "poppler":
		deps.PDFRasterizer = ocr.NewPopplerRasterizer(oc, logger)
	case "mupdf":
		deps.PDFRasterizer = mupdf.NewRasterizer(oc)
	default:
		return deps, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}

	switch cfg.Engine {
	case "", "tesseract":
		deps.Engine = ocr.NewTesseractCLI(oc, logger)
	case "gosseract":
		deps.Engine = tesseract.NewEngine(oc)
	default:
		return deps, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}

	switch cfg.TextReader {
	case "", "pdf":
		deps.PDFText = ocr.NewPDFText()
	case "pdftotext":
		deps.PDFText = ocr.NewPdftotextSource(oc, logger)
	case "none":
		deps.PDFText = ocr.NoText{}
	default:
		return deps, fmt.Errorf("unknown text reader %q", cfg.TextReader)
	}

	logger.Info("scan backends ready",
		"renderer", cfg.Renderer,
		"engine", cfg.Engine,
		"text", cfg.TextReader,
		"dpi", oc.DPI(),
	)
	return deps, nil
}
