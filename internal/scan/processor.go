// Package scan drives documents through rendering, OCR, embedded-text
// reading and identifier extraction, one page at a time.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/pallet-scanner/constants"
	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/ocr"
	"github.com/joseph-ayodele/pallet-scanner/internal/palletid"
)

// Run is the result of one processing run. A new Run replaces the previous one.
type Run struct {
	ID         uuid.UUID             `json:"run_id"`
	Strategy   string                `json:"strategy"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Records    []entity.PalletRecord `json:"records"`
	Failures   []entity.Failure      `json:"failures"`
}

// Collaborators bundles the external capabilities per source format.
type Collaborators struct {
	PDFRasterizer   ocr.Rasterizer
	ImageRasterizer ocr.Rasterizer
	PDFText         ocr.TextSource // nil disables embedded text
	Engine          ocr.Engine
}

type Options struct {
	Strategy palletid.Strategy
	Workers  int // files processed concurrently; <= 1 is sequential
}

// Processor coordinates rasterization, OCR, embedded text and extraction.
type Processor struct {
	logger *slog.Logger
	deps   Collaborators
	opts   Options
	now    func() time.Time
}

func NewProcessor(logger *slog.Logger, deps Collaborators, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.PDFText == nil {
		deps.PDFText = ocr.NoText{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Processor{logger: logger, deps: deps, opts: opts, now: time.Now}
}

// Run processes every path in order and returns the accumulated records.
// Per-file and per-page failures are collected on the Run; only context
// cancellation aborts, in which case the partial Run is returned with the error.
func (p *Processor) Run(ctx context.Context, paths []string) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		Strategy:  p.opts.Strategy.String(),
		StartedAt: p.now().UTC(),
		Records:   []entity.PalletRecord{},
		Failures:  []entity.Failure{},
	}
	log := p.logger.With("run_id", run.ID, "strategy", run.Strategy)
	log.Info("scan.run.start", "files", len(paths), "workers", p.opts.Workers)

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.processFile(gctx, log, run, path)
			return gctx.Err()
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for _, r := range results {
		run.Records = append(run.Records, r.records...)
		run.Failures = append(run.Failures, r.failures...)
	}
	run.FinishedAt = p.now().UTC()

	if err != nil {
		log.Warn("scan.run.aborted", "error", err, "records", len(run.Records))
		return run, fmt.Errorf("scan aborted: %w", err)
	}
	log.Info("scan.run.done",
		"records", len(run.Records),
		"failures", len(run.Failures),
		"elapsed_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, nil
}

type fileResult struct {
	records  []entity.PalletRecord
	failures []entity.Failure
}

func (r *fileResult) fail(doc string, page int, stage constants.Stage, err error) {
	r.failures = append(r.failures, entity.Failure{
		Document: doc,
		Page:     page,
		Stage:    string(stage),
		Error:    err.Error(),
	})
}

func (p *Processor) processFile(ctx context.Context, log *slog.Logger, run *Run, path string) fileResult {
	var res fileResult
	name := filepath.Base(path)
	log = log.With("document", name)

	format := constants.MapExtToFormat(filepath.Ext(path))
	raster, texts := p.collaboratorsFor(format)
	if raster == nil {
		err := fmt.Errorf("unsupported file type %q", filepath.Ext(path))
		log.Error("scan.file.unsupported", "path", path)
		res.fail(name, 0, constants.StageOpen, err)
		return res
	}

	images, err := raster.Open(ctx, path)
	if err != nil {
		log.Error("scan.file.open_failed", "path", path, "error", err)
		res.fail(name, 0, constants.StageOpen, err)
		return res
	}
	defer closeQuietly(log, images)

	embedded, err := texts.Open(ctx, path)
	if err != nil {
		log.Warn("scan.file.text_unavailable", "path", path, "error", err)
		res.fail(name, 0, constants.StageText, err)
		embedded = nil
	} else {
		defer closeQuietly(log, embedded)
	}

	pages := images.NumPages()
	log.Info("scan.file.start", "format", format, "pages", pages)
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			return res
		}
		ids := p.processPage(ctx, log.With("page", page), &res, name, page, images, embedded)
		for _, id := range ids {
			res.records = append(res.records, entity.PalletRecord{
				ID:           uuid.New(),
				PalletID:     id,
				DocumentName: name,
				PageNumber:   page,
				RunID:        run.ID,
				Strategy:     run.Strategy,
				CreatedAt:    p.now().UTC(),
			})
		}
	}
	log.Info("scan.file.done", "records", len(res.records), "failures", len(res.failures))
	return res
}

// processPage returns the union of identifiers from the OCR text and the
// embedded text. Either source may fail without affecting the other.
func (p *Processor) processPage(ctx context.Context, log *slog.Logger, res *fileResult, name string, page int, images ocr.PageImages, embedded ocr.PageTexts) []string {
	var ocrIDs, textIDs []string

	if text, stage, err := p.recognize(ctx, images, page); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("scan.page.ocr_failed", "stage", stage, "error", err)
			res.fail(name, page, stage, err)
		}
	} else {
		ocrIDs = palletid.Extract(text, p.opts.Strategy)
		log.Debug("scan.page.ocr_ids", "ids", ocrIDs)
	}

	if embedded != nil {
		text, err := embedded.PageText(ctx, page)
		if err != nil {
			log.Error("scan.page.text_failed", "error", err)
			res.fail(name, page, constants.StageText, err)
		} else {
			textIDs = palletid.Extract(text, p.opts.Strategy)
			log.Debug("scan.page.text_ids", "ids", textIDs)
		}
	}

	return palletid.Union(ocrIDs, textIDs)
}

func (p *Processor) recognize(ctx context.Context, images ocr.PageImages, page int) (string, constants.Stage, error) {
	img, err := images.Render(ctx, page)
	if err != nil {
		return "", constants.StageRender, err
	}
	text, err := p.deps.Engine.Recognize(ctx, img)
	if err != nil {
		return "", constants.StageOCR, err
	}
	return text, "", nil
}

func (p *Processor) collaboratorsFor(format string) (ocr.Rasterizer, ocr.TextSource) {
	switch format {
	case constants.PDF:
		return p.deps.PDFRasterizer, p.deps.PDFText
	case constants.IMAGE:
		return p.deps.ImageRasterizer, ocr.NoText{}
	default:
		return nil, nil
	}
}

type closer interface{ Close() error }

func closeQuietly(log *slog.Logger, c closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "error", err)
	}
}
