package repository

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
)

// DefaultTable is the record table used when none is configured.
const DefaultTable = "pallet_records"

// insertBatch and lookupBatch bound placeholders per statement to stay under
// driver limits.
const (
	insertBatch = 500
	lookupBatch = 1000
)

var reIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

var recordColumns = []string{"id", "pallet_id", "document_name", "page_number", "run_id", "strategy", "created_at"}

type PalletRecordRepository interface {
	Migrate(ctx context.Context) error
	InsertMany(ctx context.Context, recs []entity.PalletRecord) (int, error)
	FindByPalletIDs(ctx context.Context, ids []string) ([]entity.PalletRecord, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.PalletRecord, error)
	Count(ctx context.Context) (int, error)
}

type palletRecordRepo struct {
	drv    *entsql.Driver
	table  string
	logger *slog.Logger
}

func NewPalletRecordRepository(drv *entsql.Driver, table string, logger *slog.Logger) (PalletRecordRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = DefaultTable
	}
	if !reIdent.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &palletRecordRepo{drv: drv, table: table, logger: logger}, nil
}

func (r *palletRecordRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

// Migrate creates the record table and its lookup index when missing.
func (r *palletRecordRepo) Migrate(ctx context.Context) error {
	ts := "timestamp"
	if r.drv.Dialect() == dialect.Postgres {
		ts = "timestamptz"
	}
	b := r.builder()
	table, _ := b.CreateTable(r.table).IfNotExists().
		Columns(
			entsql.Column("id").Type("varchar(36)").Attr("NOT NULL"),
			entsql.Column("pallet_id").Type("varchar(18)").Attr("NOT NULL"),
			entsql.Column("document_name").Type("text").Attr("NOT NULL"),
			entsql.Column("page_number").Type("integer").Attr("NOT NULL"),
			entsql.Column("run_id").Type("varchar(36)").Attr("NOT NULL"),
			entsql.Column("strategy").Type("varchar(16)").Attr("NOT NULL"),
			entsql.Column("created_at").Type(ts).Attr("NOT NULL"),
		).
		PrimaryKey("id").
		Query()
	index, _ := b.CreateIndex(r.table + "_pallet_id_idx").IfNotExists().
		Table(r.table).
		Columns("pallet_id").
		Query()

	for _, stmt := range []string{table, index} {
		if _, err := r.drv.DB().ExecContext(ctx, stmt); err != nil {
			r.logger.Error("failed to migrate record table", "table", r.table, "error", err)
			return fmt.Errorf("migrate %s: %w", r.table, err)
		}
	}
	r.logger.Debug("record table ready", "table", r.table)
	return nil
}

// InsertMany writes all records in one transaction; nothing is kept on failure.
func (r *palletRecordRepo) InsertMany(ctx context.Context, recs []entity.PalletRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := r.drv.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(recs); start += insertBatch {
		end := min(start+insertBatch, len(recs))
		ins := r.builder().Insert(r.table).Columns(recordColumns...)
		for _, rec := range recs[start:end] {
			if rec.ID == uuid.Nil {
				rec.ID = uuid.New()
			}
			ins.Values(rec.ID.String(), rec.PalletID, rec.DocumentName, rec.PageNumber, rec.RunID.String(), rec.Strategy, rec.CreatedAt.UTC())
		}
		query, args := ins.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.Error("failed to insert pallet records", "table", r.table, "batch_start", start, "error", err)
			return 0, fmt.Errorf("insert %s: %w", r.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	r.logger.Info("inserted pallet records", "table", r.table, "rows", len(recs))
	return len(recs), nil
}

// FindByPalletIDs returns every stored record whose identifier is in ids,
// ordered by identifier, document and page.
func (r *palletRecordRepo) FindByPalletIDs(ctx context.Context, ids []string) ([]entity.PalletRecord, error) {
	out := []entity.PalletRecord{}
	for start := 0; start < len(ids); start += lookupBatch {
		end := min(start+lookupBatch, len(ids))
		args := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			args = append(args, id)
		}
		b := r.builder()
		query, qargs := b.Select(recordColumns...).
			From(b.Table(r.table)).
			Where(entsql.In("pallet_id", args...)).
			OrderBy("pallet_id", "document_name", "page_number").
			Query()
		recs, err := r.query(ctx, query, qargs)
		if err != nil {
			r.logger.Error("failed to find pallet records", "ids", len(ids), "batch_start", start, "error", err)
			return nil, err
		}
		out = append(out, recs...)
	}
	if len(ids) > lookupBatch {
		seen := make(map[uuid.UUID]bool, len(out))
		merged := out[:0]
		for _, rec := range out {
			if !seen[rec.ID] {
				seen[rec.ID] = true
				merged = append(merged, rec)
			}
		}
		out = merged
		slices.SortStableFunc(out, func(a, b entity.PalletRecord) int {
			return cmp.Or(
				strings.Compare(a.PalletID, b.PalletID),
				strings.Compare(a.DocumentName, b.DocumentName),
				cmp.Compare(a.PageNumber, b.PageNumber),
			)
		})
	}
	return out, nil
}

func (r *palletRecordRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.PalletRecord, error) {
	b := r.builder()
	query, args := b.Select(recordColumns...).
		From(b.Table(r.table)).
		Where(entsql.EQ("run_id", runID.String())).
		OrderBy("document_name", "page_number", "pallet_id").
		Query()
	recs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list run records", "run_id", runID, "error", err)
		return nil, err
	}
	return recs, nil
}

func (r *palletRecordRepo) Count(ctx context.Context) (int, error) {
	b := r.builder()
	query, args := b.Select(entsql.Count("*")).From(b.Table(r.table)).Query()
	var n int
	if err := r.drv.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table, err)
	}
	return n, nil
}

func (r *palletRecordRepo) query(ctx context.Context, query string, args []any) ([]entity.PalletRecord, error) {
	rows, err := r.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table, err)
	}
	defer func(rows *sql.Rows) {
		if cerr := rows.Close(); cerr != nil {
			r.logger.Warn("failed to close rows", "error", cerr)
		}
	}(rows)

	out := []entity.PalletRecord{}
	for rows.Next() {
		var (
			rec       entity.PalletRecord
			id, runID string
		)
		if err := rows.Scan(&id, &rec.PalletID, &rec.DocumentName, &rec.PageNumber, &runID, &rec.Strategy, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table, err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan %s: bad id %q: %w", r.table, id, err)
		}
		if rec.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("scan %s: bad run_id %q: %w", r.table, runID, err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.table, err)
	}
	return out, nil
}
