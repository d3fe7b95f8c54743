package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/ingest"
	"github.com/joseph-ayodele/pallet-scanner/internal/ocr"
	"github.com/joseph-ayodele/pallet-scanner/internal/palletid"
	"github.com/joseph-ayodele/pallet-scanner/internal/repository"
	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

// onePage renders every document as a single page whose bitmap is the file
// name; the engine returns the file's content as OCR text.
type onePage struct{ name string }

func (d onePage) NumPages() int                               { return 1 }
func (d onePage) Close() error                                { return nil }
func (d onePage) Render(context.Context, int) ([]byte, error) { return []byte(d.name), nil }

type nameRasterizer struct{}

func (nameRasterizer) Open(_ context.Context, path string) (ocr.PageImages, error) {
	return onePage{name: path}, nil
}

type fileEngine struct{}

func (fileEngine) Recognize(_ context.Context, img []byte) (string, error) {
	b, err := os.ReadFile(string(img))
	return string(b), err
}

type failingStore struct {
	repository.PalletRecordRepository
}

func (failingStore) InsertMany(context.Context, []entity.PalletRecord) (int, error) {
	return 0, errors.New("connection refused")
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func deps() scan.Collaborators {
	return scan.Collaborators{
		PDFRasterizer:   nameRasterizer{},
		ImageRasterizer: nameRasterizer{},
		Engine:          fileEngine{},
	}
}

func sqliteStore(t *testing.T) repository.PalletRecordRepository {
	t.Helper()
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, ":memory:", quiet())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repository.Close(drv, nil, quiet()) })
	repo, err := repository.NewPalletRecordRepository(drv, "", quiet())
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return repo
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.pdf":     "Pallet (00)123456789012345678",
		"b.png":     "SSCC 876543210987654321 and 123456789012345678",
		"notes.txt": "ignored 111111111111111111",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScanAndUpload(t *testing.T) {
	dir := writeInputs(t)
	store := sqliteStore(t)
	p := New(quiet(), deps(), 2, ingest.NewFSIngestor(ingest.Options{}, quiet()), store)
	ctx := context.Background()

	res, err := p.Scan(ctx, Request{Paths: []string{dir}, Strategy: palletid.Strict, Upload: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.UploadErr != nil {
		t.Fatalf("UploadErr = %v", res.UploadErr)
	}

	type row struct {
		ID, Doc string
		Page    int
	}
	var got []row
	for _, r := range res.Run.Records {
		got = append(got, row{r.PalletID, r.DocumentName, r.PageNumber})
	}
	want := []row{
		{"123456789012345678", "a.pdf", 1},
		{"876543210987654321", "b.png", 1},
		{"123456789012345678", "b.png", 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}

	found, err := p.Lookup(ctx, []string{"123456789012345678"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(found) != 2 {
		t.Errorf("Lookup() returned %d records, want 2", len(found))
	}
}

func TestScanKeepsResultsWhenUploadFails(t *testing.T) {
	dir := writeInputs(t)
	p := New(quiet(), deps(), 1, nil, failingStore{})

	res, err := p.Scan(context.Background(), Request{Paths: []string{dir}, Strategy: palletid.Strict, Upload: true})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.UploadErr == nil || !strings.Contains(res.UploadErr.Error(), "connection refused") {
		t.Errorf("UploadErr = %v", res.UploadErr)
	}
	if res.Inserted != 0 || len(res.Run.Records) != 3 {
		t.Errorf("Inserted = %d, records = %d", res.Inserted, len(res.Run.Records))
	}
}

func TestUploadWithoutStore(t *testing.T) {
	p := New(quiet(), deps(), 1, nil, nil)
	rec := entity.PalletRecord{ID: uuid.New(), PalletID: "123456789012345678", DocumentName: "a.pdf", PageNumber: 1, CreatedAt: time.Now()}
	if _, err := p.Upload(context.Background(), []entity.PalletRecord{rec}); !errors.Is(err, ErrNoStore) {
		t.Errorf("Upload() error = %v, want ErrNoStore", err)
	}
	if _, err := p.Lookup(context.Background(), []string{"123456789012345678"}); !errors.Is(err, ErrNoStore) {
		t.Errorf("Lookup() error = %v, want ErrNoStore", err)
	}
}

func TestScanReportsMissingInput(t *testing.T) {
	p := New(quiet(), deps(), 1, nil, nil)
	missing := filepath.Join(t.TempDir(), "gone")

	res, err := p.Scan(context.Background(), Request{Paths: []string{missing}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(res.Run.Failures) != 1 || res.Run.Failures[0].Document != missing || res.Run.Failures[0].Stage != "open" {
		t.Errorf("Failures = %+v", res.Run.Failures)
	}
	if len(res.Run.Records) != 0 {
		t.Errorf("Records = %+v", res.Run.Records)
	}
}

func TestScanRunsAreIndependent(t *testing.T) {
	dir := writeInputs(t)
	p := New(quiet(), deps(), 1, nil, nil)
	ctx := context.Background()

	first, err := p.Scan(ctx, Request{Paths: []string{filepath.Join(dir, "a.pdf")}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Scan(ctx, Request{Paths: []string{filepath.Join(dir, "a.pdf")}})
	if err != nil {
		t.Fatal(err)
	}
	if first.Run.ID == second.Run.ID {
		t.Error("runs share an ID")
	}
	if len(first.Run.Records) != 1 || len(second.Run.Records) != 1 {
		t.Errorf("records = %d, %d; want 1 each", len(first.Run.Records), len(second.Run.Records))
	}
}
