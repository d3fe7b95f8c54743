package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageRasterizer treats an image file as a one-page document.
type ImageRasterizer struct {
	scale float64
}

func NewImageRasterizer(cfg Config) *ImageRasterizer {
	return &ImageRasterizer{scale: cfg.WithDefaults().ImageScale}
}

func (r *ImageRasterizer) Open(_ context.Context, path string) (PageImages, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &imageDoc{img: img, format: format, scale: r.scale}, nil
}

type imageDoc struct {
	img    image.Image
	format string
	scale  float64
}

func (d *imageDoc) NumPages() int { return 1 }
func (d *imageDoc) Close() error  { return nil }

func (d *imageDoc) Render(_ context.Context, page int) ([]byte, error) {
	if page != 1 {
		return nil, fmt.Errorf("page %d out of range 1..1", page)
	}
	img := d.img
	if d.scale != 1 {
		b := img.Bounds()
		w := int(float64(b.Dx()) * d.scale)
		h := int(float64(b.Dy()) * d.scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %.2f collapses %dx%d image", d.scale, b.Dx(), b.Dy())
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode %s page as png: %w", d.format, err)
	}
	return buf.Bytes(), nil
}

// TesseractCLI runs the tesseract binary on each page bitmap.
type TesseractCLI struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractCLI(cfg Config, logger *slog.Logger) *TesseractCLI {
	return &TesseractCLI{cfg: cfg.WithDefaults(), runner: execRunner{}, logger: loggerOrDefault(logger)}
}

func (t *TesseractCLI) Recognize(ctx context.Context, img []byte) (string, error) {
	tmpDir, err := os.MkdirTemp("", "ps-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, img, 0o600); err != nil {
		return "", err
	}

	// tesseract <file> stdout -l <lang> [...]
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.logger, t.args(in)...)
	if err != nil {
		return "", commandErr("tesseract", errb, err)
	}
	return CleanText(string(out)), nil
}

func (t *TesseractCLI) args(in string) []string {
	args := []string{in, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+t.cfg.Whitelist)
	}
	return args
}
