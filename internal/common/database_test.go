package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
)

func TestInitDatabaseInMemory(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := validConfig()

	db, err := InitDatabase(ctx, cfg, true, logger)
	if err != nil {
		t.Fatalf("InitDatabase() error = %v", err)
	}
	defer db.Cleanup()

	n, err := db.Records.InsertMany(ctx, []entity.PalletRecord{{
		ID: uuid.New(), PalletID: "123456789012345678", DocumentName: "a.pdf", PageNumber: 1, RunID: uuid.New(),
	}})
	if err != nil || n != 1 {
		t.Fatalf("InsertMany() = %d, %v", n, err)
	}
}

func TestInitDatabaseBadTable(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Table = "x; drop"
	_, err := InitDatabase(context.Background(), cfg, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("InitDatabase() = %v, want ErrInvalidInput", err)
	}
}

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("scan.run.aborted", "records", 2)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "scan.run.aborted" || line["records"] != float64(2) {
		t.Errorf("log line = %v", line)
	}
	if ParseLevel("DEBUG") != slog.LevelDebug || ParseLevel("bogus") != slog.LevelInfo {
		t.Error("ParseLevel mapping")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" {
		t.Error("empty context has a request id")
	}
	ctx = WithRequestID(ctx, "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Error("request id not stored")
	}
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
	if LoggerFromContext(ctx, fallback) != fallback {
		t.Error("fallback logger not used")
	}
	scoped := fallback.With("request_id", "req-1")
	if LoggerFromContext(WithLogger(ctx, scoped), fallback) != scoped {
		t.Error("scoped logger not returned")
	}
}
