package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/palletid"
	"github.com/joseph-ayodele/pallet-scanner/internal/pipeline"
)

// maxLookupIDs bounds a single lookup request.
const maxLookupIDs = 1000

// Backend is the work the service delegates; *pipeline.Pipeline implements it.
type Backend interface {
	Scan(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Upload(ctx context.Context, recs []entity.PalletRecord) (int, error)
	Lookup(ctx context.Context, ids []string) ([]entity.PalletRecord, error)
}

type PalletService struct {
	backend  Backend
	scanRoot string
	logger   *slog.Logger
}

var _ PalletServiceServer = (*PalletService)(nil)

// NewPalletService serves backend. Scan requests may only name paths under
// scanRoot; an empty scanRoot disables the Scan method.
func NewPalletService(backend Backend, scanRoot string, logger *slog.Logger) *PalletService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PalletService{backend: backend, scanRoot: scanRoot, logger: logger}
}

func (s *PalletService) Lookup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	ids, err := stringList(req, "pallet_ids")
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	v := common.NewValidator().Field("pallet_ids", ids, common.Required, common.PalletIDs(maxLookupIDs))
	if err := common.ValidateAndReturnError(v); err != nil {
		log.Error("invalid lookup request", "error", err)
		return nil, err
	}

	recs, err := s.backend.Lookup(ctx, ids)
	if err != nil {
		log.Error("lookup failed", "ids", len(ids), "error", err)
		return nil, backendStatus(err, "lookup failed")
	}
	log.Info("lookup succeeded", "ids", len(ids), "records", len(recs))
	return newStruct(map[string]any{"records": recordsToList(recs)})
}

func (s *PalletService) Upload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	items, err := mapList(req.AsMap()["records"], "records")
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	if len(items) == 0 {
		return nil, common.InvalidArgumentError("records is required")
	}

	batch := uuid.New()
	recs := make([]entity.PalletRecord, 0, len(items))
	v := common.NewValidator()
	for i, item := range items {
		rec, err := recordFromMap(item)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("records[%d]: %v", i, err)
		}
		v.Field("pallet_id", rec.PalletID, common.PalletID).
			Field("document_name", rec.DocumentName, common.Required).
			Field("page_number", rec.PageNumber, common.PositiveInt)
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.RunID == uuid.Nil {
			rec.RunID = batch
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = timeNow().UTC()
		}
		recs = append(recs, rec)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		log.Error("invalid upload request", "error", err)
		return nil, err
	}

	n, err := s.backend.Upload(ctx, recs)
	if err != nil {
		log.Error("upload failed", "records", len(recs), "error", err)
		return nil, backendStatus(err, "upload failed")
	}
	log.Info("upload succeeded", "records", n)
	return newStruct(map[string]any{"inserted": n})
}

func (s *PalletService) Scan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	paths, err := stringList(req, "paths")
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	if err := common.ValidateAndReturnError(common.NewValidator().Field("paths", paths, common.Required)); err != nil {
		return nil, err
	}
	if s.scanRoot == "" {
		return nil, status.Error(codes.FailedPrecondition, "scanning is disabled; set SCAN_ROOT")
	}
	if paths, err = confine(s.scanRoot, paths); err != nil {
		log.Warn("scan path rejected", "root", s.scanRoot, "error", err)
		return nil, status.Error(codes.PermissionDenied, err.Error())
	}

	fields := req.GetFields()
	strategy := palletid.Strict
	if sv := strings.TrimSpace(fields["strategy"].GetStringValue()); sv != "" {
		if strategy, err = palletid.ParseStrategy(sv); err != nil {
			return nil, common.InvalidArgumentError(err.Error())
		}
	}
	upload := fields["upload"].GetBoolValue()

	log.Info("starting scan", "paths", len(paths), "strategy", strategy.String(), "upload", upload)
	res, err := s.backend.Scan(ctx, pipeline.Request{Paths: paths, Strategy: strategy, Upload: upload})
	if err != nil {
		log.Error("scan aborted", "error", err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, common.InternalError("scan failed")
	}

	out := map[string]any{
		"run_id":   res.Run.ID.String(),
		"strategy": res.Run.Strategy,
		"records":  recordsToList(res.Run.Records),
		"failures": failuresToList(res.Run.Failures),
		"inserted": res.Inserted,
	}
	if res.UploadErr != nil {
		out["upload_error"] = res.UploadErr.Error()
	}
	log.Info("scan completed", "run_id", res.Run.ID, "records", len(res.Run.Records), "failures", len(res.Run.Failures), "inserted", res.Inserted)
	return newStruct(out)
}

// confine resolves paths against root and rejects any that lead outside it,
// following symlinks for paths that exist.
func confine(root string, paths []string) ([]string, error) {
	base, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}
	bases := []string{base}
	if resolved, err := filepath.EvalSymlinks(base); err == nil && resolved != base {
		bases = append(bases, resolved)
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(base, full)
		}
		full = filepath.Clean(full)
		check := full
		if resolved, err := filepath.EvalSymlinks(full); err == nil {
			check = resolved
		}
		if !slices.ContainsFunc(bases, func(b string) bool { return within(b, check) }) {
			return nil, fmt.Errorf("path %q is outside the scan root", p)
		}
		out = append(out, full)
	}
	return out, nil
}

func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func backendStatus(err error, msg string) error {
	switch {
	case errors.Is(err, pipeline.ErrNoStore):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return common.ToStatus(common.WrapError(err, msg))
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode reply: %v", err)
	}
	return out, nil
}
