package export

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

func testService() *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleRun() *scan.Run {
	id := uuid.MustParse("8f7a3a54-6a0e-4b8c-9a53-0f1f5a0e9c11")
	at := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	rec := func(pid, doc string, page int) entity.PalletRecord {
		return entity.PalletRecord{
			ID:           uuid.New(),
			PalletID:     pid,
			DocumentName: doc,
			PageNumber:   page,
			RunID:        id,
			Strategy:     "strict",
			CreatedAt:    at,
		}
	}
	return &scan.Run{
		ID:         id,
		Strategy:   "strict",
		StartedAt:  at,
		FinishedAt: at,
		Records: []entity.PalletRecord{
			rec("001234567890123456", "a.pdf", 1),
			rec("987654321098765432", "a.pdf", 2),
			rec("001234567890123456", "b.png", 1),
		},
		Failures: []entity.Failure{
			{Document: "broken.pdf", Page: 0, Stage: "open", Error: "not a pdf"},
		},
	}
}

func TestXLSX(t *testing.T) {
	svc := testService()
	data, err := svc.XLSX(sampleRun())
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(recordsSheet)
	if err != nil {
		t.Fatalf("GetRows(%q) error = %v", recordsSheet, err)
	}
	want := [][]string{
		{"Pallet ID", "Document", "Page"},
		{"001234567890123456", "a.pdf", "1"},
		{"987654321098765432", "a.pdf", "2"},
		{"001234567890123456", "b.png", "1"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("records sheet mismatch (-want +got):\n%s", diff)
	}

	failures, err := f.GetRows(failuresSheet)
	if err != nil {
		t.Fatalf("GetRows(%q) error = %v", failuresSheet, err)
	}
	if len(failures) != 2 || failures[1][0] != "broken.pdf" || failures[1][2] != "open" {
		t.Errorf("failures sheet = %v", failures)
	}
}

func TestXLSXWithoutFailures(t *testing.T) {
	run := sampleRun()
	run.Failures = nil

	data, err := testService().XLSX(run)
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !cmp.Equal(got, []string{recordsSheet}) {
		t.Errorf("sheets = %v, want only %q", got, recordsSheet)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	svc := testService()
	run := sampleRun()

	var buf bytes.Buffer
	if err := svc.WriteJSON(&buf, run); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	got, err := svc.ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadJSONFillsRunMetadata(t *testing.T) {
	doc := `{
  "run_id": "8f7a3a54-6a0e-4b8c-9a53-0f1f5a0e9c11",
  "strategy": "tolerant",
  "finished_at": "2025-06-05T10:00:00Z",
  "records": [{"pallet_id": "001234567890123456", "document_name": "a.pdf", "page_number": 3}]
}`
	run, err := testService().ReadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	rec := run.Records[0]
	if rec.RunID != run.ID || rec.Strategy != "tolerant" || !rec.CreatedAt.Equal(run.FinishedAt) {
		t.Errorf("record metadata not inherited: %+v", rec)
	}
}

func TestReadJSONRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing run_id": `{"strategy": "strict", "records": []}`,
		"short id": `{"run_id": "8f7a3a54-6a0e-4b8c-9a53-0f1f5a0e9c11", "strategy": "strict",
			"records": [{"pallet_id": "12345", "document_name": "a.pdf", "page_number": 1}]}`,
		"page zero": `{"run_id": "8f7a3a54-6a0e-4b8c-9a53-0f1f5a0e9c11", "strategy": "strict",
			"records": [{"pallet_id": "001234567890123456", "document_name": "a.pdf", "page_number": 0}]}`,
		"unknown strategy": `{"run_id": "8f7a3a54-6a0e-4b8c-9a53-0f1f5a0e9c11", "strategy": "fuzzy", "records": []}`,
	}
	svc := testService()
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ReadJSON(strings.NewReader(doc)); err == nil {
				t.Errorf("ReadJSON() accepted %s", doc)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("truncate() = %q", got)
	}
}
