package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
	"github.com/joseph-ayodele/pallet-scanner/internal/export"
	"github.com/joseph-ayodele/pallet-scanner/internal/ingest"
	"github.com/joseph-ayodele/pallet-scanner/internal/palletid"
	"github.com/joseph-ayodele/pallet-scanner/internal/pipeline"
	"github.com/joseph-ayodele/pallet-scanner/internal/pipeline/backends"
	"github.com/joseph-ayodele/pallet-scanner/internal/repository"
	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := common.LoadConfig()

	var (
		strategyStr = flag.String("strategy", cfg.Scan.Strategy, "extraction strategy: strict (a) or tolerant (b)")
		workers     = flag.Int("workers", cfg.Scan.Workers, "files processed concurrently")
		xlsxOut     = flag.String("xlsx", "", "write results to this XLSX file")
		jsonOut     = flag.String("json", "", "write the run to this JSON file")
		upload      = flag.Bool("upload", false, "store results in the configured database")
		inmem       = flag.Bool("inmem", false, "use an in-memory SQLite database for -upload")
		skipHidden  = flag.Bool("skip-hidden", true, "skip hidden files and directories")
		dedup       = flag.Bool("dedup", false, "skip files whose content was already seen")
	)
	flag.Usage = func() {
		printError("usage: palletscan [flags] <file-or-dir>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}
	cfg.Scan.Strategy = *strategyStr
	cfg.Scan.Workers = *workers
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 2
	}
	strategy, _ := palletid.ParseStrategy(cfg.Scan.Strategy)

	logger := common.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := backends.Build(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to configure scan backends", "error", err)
		return 1
	}

	var store repository.PalletRecordRepository
	if *upload {
		db, err := common.InitDatabase(ctx, cfg, *inmem, logger)
		if err != nil {
			// results are still shown; the upload reports the missing store
			logger.Error("database unavailable, results will not be stored", "error", err)
		} else {
			defer db.Cleanup()
			store = db.Records
		}
	}

	ingestor := ingest.NewFSIngestor(ingest.Options{SkipHidden: *skipHidden, SkipDuplicates: *dedup}, logger)
	p := pipeline.New(logger, deps, cfg.Scan.Workers, ingestor, store)

	res, scanErr := p.Scan(ctx, pipeline.Request{Paths: flag.Args(), Strategy: strategy, Upload: *upload})
	printRun(res.Run)

	exit := 0
	if scanErr != nil {
		printError("Scan interrupted: %v\n", scanErr)
		exit = 130
	}
	if err := writeOutputs(logger, res.Run, *xlsxOut, *jsonOut); err != nil {
		printError("Error: %v\n", err)
		exit = max(exit, 1)
	}
	if *upload && scanErr == nil {
		if res.UploadErr != nil {
			printError("Upload failed, results were not stored: %v\n", res.UploadErr)
			exit = max(exit, 1)
		} else {
			fmt.Printf("- Uploaded: %d\n", res.Inserted)
		}
	}
	return exit
}

func printRun(run *scan.Run) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PALLET ID\tDOCUMENT\tPAGE")
	for _, r := range run.Records {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.PalletID, r.DocumentName, r.PageNumber)
	}
	_ = tw.Flush()

	for _, f := range run.Failures {
		where := f.Document
		if f.Page > 0 {
			where = fmt.Sprintf("%s page %d", f.Document, f.Page)
		}
		printError("Failed to process %s (%s): %s\n", where, f.Stage, f.Error)
	}

	fmt.Printf("Scan complete!\n")
	fmt.Printf("- Run: %s (%s)\n", run.ID, run.Strategy)
	fmt.Printf("- Records: %d\n", len(run.Records))
	fmt.Printf("- Failures: %d\n", len(run.Failures))
}

func writeOutputs(logger *slog.Logger, run *scan.Run, xlsxPath, jsonPath string) error {
	svc := export.NewService(logger)
	var errs []error
	if xlsxPath != "" {
		data, err := svc.XLSX(run)
		if err == nil {
			err = writeFile(xlsxPath, data)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("xlsx: %w", err))
		} else {
			fmt.Printf("- Output: %s\n", xlsxPath)
		}
	}
	if jsonPath != "" {
		var buf bytes.Buffer
		err := svc.WriteJSON(&buf, run)
		if err == nil {
			err = writeFile(jsonPath, buf.Bytes())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("json: %w", err))
		} else {
			fmt.Printf("- Output: %s\n", jsonPath)
		}
	}
	return errors.Join(errs...)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
