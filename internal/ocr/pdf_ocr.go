package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PopplerRasterizer renders PDF pages with pdfinfo + pdftoppm.
type PopplerRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPopplerRasterizer(cfg Config, logger *slog.Logger) *PopplerRasterizer {
	return &PopplerRasterizer{cfg: cfg.WithDefaults(), runner: execRunner{}, logger: loggerOrDefault(logger)}
}

func (p *PopplerRasterizer) Open(ctx context.Context, path string) (PageImages, error) {
	// pdfinfo <path>
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdfinfo, p.logger, path)
	if err != nil {
		return nil, commandErr("pdfinfo", errb, err)
	}
	n, err := parsePdfinfoPages(out)
	if err != nil {
		return nil, err
	}
	return &popplerDoc{
		path:  path,
		pages: capPages(n, p.cfg.MaxPages),
		r:     p,
	}, nil
}

type popplerDoc struct {
	path  string
	pages int
	r     *PopplerRasterizer
}

func (d *popplerDoc) NumPages() int { return d.pages }
func (d *popplerDoc) Close() error  { return nil }

func (d *popplerDoc) Render(ctx context.Context, page int) ([]byte, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}
	tmpDir, err := os.MkdirTemp("", "ps-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			d.r.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := d.r.runner.Run(ctx, d.r.cfg.Pdftoppm, d.r.logger,
		"-f", n, "-l", n, "-r", strconv.Itoa(d.r.cfg.DPI()), "-png", "-singlefile", d.path, prefix)
	if err != nil {
		return nil, commandErr("pdftoppm", errb, err)
	}
	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return img, nil
}

func parsePdfinfoPages(out []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(k) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: bad page count %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo: no page count in output")
}

// PdftotextSource reads embedded text one page at a time with pdftotext.
type PdftotextSource struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPdftotextSource(cfg Config, logger *slog.Logger) *PdftotextSource {
	return &PdftotextSource{cfg: cfg.WithDefaults(), runner: execRunner{}, logger: loggerOrDefault(logger)}
}

func (s *PdftotextSource) Open(_ context.Context, path string) (PageTexts, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &pdftotextDoc{path: path, s: s}, nil
}

type pdftotextDoc struct {
	path string
	s    *PdftotextSource
}

func (d *pdftotextDoc) Close() error { return nil }

func (d *pdftotextDoc) PageText(ctx context.Context, page int) (string, error) {
	n := strconv.Itoa(page)
	// pdftotext -f N -l N -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := d.s.runner.Run(ctx, d.s.cfg.Pdftotext, d.s.logger,
		"-f", n, "-l", n, "-layout", "-enc", "UTF-8", "-eol", "unix", d.path, "-")
	if err != nil {
		return "", commandErr("pdftotext", errb, err)
	}
	// a form-feed \f terminates each page
	return strings.TrimRight(string(out), "\f\n"), nil
}
