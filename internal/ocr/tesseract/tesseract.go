// Package tesseract runs OCR in-process through the Tesseract C API.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/pallet-scanner/internal/ocr"
)

var _ ocr.Engine = (*Engine)(nil)

// Engine implements ocr.Engine with a fresh gosseract client per page;
// clients are not safe for concurrent use.
type Engine struct {
	cfg           ocr.Config
	clientFactory func() *gosseract.Client
}

func NewEngine(cfg ocr.Config) *Engine {
	return &Engine{cfg: cfg.WithDefaults(), clientFactory: gosseract.NewClient}
}

func (e *Engine) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := e.configure(c); err != nil {
		return "", err
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return ocr.CleanText(text), nil
}

func (e *Engine) configure(c *gosseract.Client) error {
	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.cfg.TesseractLang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	if e.cfg.Whitelist != "" {
		if err := c.SetWhitelist(e.cfg.Whitelist); err != nil {
			return fmt.Errorf("set whitelist: %w", err)
		}
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return fmt.Errorf("set page seg mode: %w", err)
		}
	}
	return nil
}
