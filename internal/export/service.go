package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

const (
	recordsSheet  = "Pallet IDs"
	failuresSheet = "Failures"
)

// Service renders scan runs into files users can open or hand back for upload.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// XLSX returns a workbook with one row per record, plus a failure sheet when
// the run had failures.
func (s *Service) XLSX(run *scan.Run) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", "error", err)
		}
	}()

	// rename the default sheet so the workbook opens on the records
	if err := f.SetSheetName(f.GetSheetName(0), recordsSheet); err != nil {
		return nil, err
	}

	headers := []any{"Pallet ID", "Document", "Page"}
	if err := f.SetSheetRow(recordsSheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, r := range run.Records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		// identifiers are text: 18 digits would lose precision as numbers
		row := []any{r.PalletID, r.DocumentName, r.PageNumber}
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(recordsSheet, "A", "A", 24) // pallet id
	_ = f.SetColWidth(recordsSheet, "B", "B", 40) // document
	_ = f.SetColWidth(recordsSheet, "C", "C", 8)  // page

	if len(run.Failures) > 0 {
		if _, err := f.NewSheet(failuresSheet); err != nil {
			return nil, err
		}
		fh := []any{"Document", "Page", "Stage", "Error"}
		if err := f.SetSheetRow(failuresSheet, "A1", &fh); err != nil {
			return nil, err
		}
		for i, fl := range run.Failures {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			row := []any{fl.Document, fl.Page, fl.Stage, truncate(fl.Error, 500)}
			if err := f.SetSheetRow(failuresSheet, cell, &row); err != nil {
				return nil, err
			}
		}
		_ = f.SetColWidth(failuresSheet, "A", "A", 40)
		_ = f.SetColWidth(failuresSheet, "D", "D", 80)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"run_id", run.ID.String(),
		"rows", len(run.Records),
		"failures", len(run.Failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
