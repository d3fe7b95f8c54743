// Package pipeline couples input collection, scanning and the optional upload
// of results into one call shared by the CLI and the gRPC service.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pallet-scanner/constants"
	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/ingest"
	"github.com/joseph-ayodele/pallet-scanner/internal/palletid"
	"github.com/joseph-ayodele/pallet-scanner/internal/repository"
	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

// ErrNoStore is reported when an upload is requested without a record store.
var ErrNoStore = errors.New("no record store configured")

type Request struct {
	Paths    []string // files or directories
	Strategy palletid.Strategy
	Upload   bool
}

// Result carries the run even when the upload failed; UploadErr is then set
// and Inserted is zero.
type Result struct {
	Run       *scan.Run
	Inserted  int
	UploadErr error
}

// Pipeline coordinates collection, scanning, then upload.
type Pipeline struct {
	logger   *slog.Logger
	deps     scan.Collaborators
	workers  int
	ingestor *ingest.FSIngestor
	records  repository.PalletRecordRepository
}

// New returns a pipeline. records may be nil when no store is configured.
func New(logger *slog.Logger, deps scan.Collaborators, workers int, ingestor *ingest.FSIngestor, records repository.PalletRecordRepository) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if ingestor == nil {
		ingestor = ingest.NewFSIngestor(ingest.Options{}, logger)
	}
	return &Pipeline{logger: logger, deps: deps, workers: workers, ingestor: ingestor, records: records}
}

// Scan runs one processing pass. Every call starts an independent run.
// Only cancellation returns an error; the partial result is returned with it.
func (p *Pipeline) Scan(ctx context.Context, req Request) (*Result, error) {
	paths, collected, _ := p.ingestor.Collect(req.Paths)

	proc := scan.NewProcessor(p.logger, p.deps, scan.Options{Strategy: req.Strategy, Workers: p.workers})
	run, err := proc.Run(ctx, paths)
	run.Failures = append(collectFailures(collected), run.Failures...)
	res := &Result{Run: run}
	if err != nil {
		return res, err
	}

	if !req.Upload {
		return res, nil
	}
	res.Inserted, res.UploadErr = p.Upload(ctx, run.Records)
	return res, nil
}

// Upload stores records in one batch. Nothing is stored on failure.
func (p *Pipeline) Upload(ctx context.Context, recs []entity.PalletRecord) (int, error) {
	if p.records == nil {
		return 0, ErrNoStore
	}
	if len(recs) == 0 {
		p.logger.Info("pipeline.upload.skipped", "reason", "no records")
		return 0, nil
	}
	n, err := p.records.InsertMany(ctx, recs)
	if err != nil {
		p.logger.Error("pipeline.upload.failed", "rows", len(recs), "error", err)
		return 0, fmt.Errorf("upload: %w", err)
	}
	p.logger.Info("pipeline.upload.ok", "rows", n)
	return n, nil
}

// Lookup returns every stored record carrying one of ids.
func (p *Pipeline) Lookup(ctx context.Context, ids []string) ([]entity.PalletRecord, error) {
	if p.records == nil {
		return nil, ErrNoStore
	}
	return p.records.FindByPalletIDs(ctx, ids)
}

func collectFailures(results []ingest.IngestionResult) []entity.Failure {
	out := []entity.Failure{}
	for _, r := range results {
		if r.Err == "" {
			continue
		}
		out = append(out, entity.Failure{
			Document: r.SourcePath,
			Stage:    string(constants.StageOpen),
			Error:    r.Err,
		})
	}
	return out
}
