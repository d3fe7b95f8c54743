package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
	"github.com/joseph-ayodele/pallet-scanner/internal/export"
	"github.com/joseph-ayodele/pallet-scanner/internal/server"
)

func main() {
	os.Exit(run())
}

// palletupload stores the records of a run file written by palletscan -json,
// either directly in the database or through a palletd server.
func run() int {
	var (
		addr    = flag.String("addr", "", "palletd address; when empty the database is used directly")
		inmem   = flag.Bool("inmem", false, "use an in-memory SQLite database")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: palletupload [flags] <run.json>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	recs, err := readRuns(logger, flag.Args())
	if err != nil {
		logger.Error("failed to read run files", "error", err)
		return 1
	}

	var n int
	if *addr != "" {
		conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			logger.Error("failed to connect", "addr", *addr, "error", err)
			return 1
		}
		defer conn.Close()
		n, err = server.NewClient(conn).Upload(ctx, recs)
		if err != nil {
			logger.Error("upload failed", "addr", *addr, "error", err)
			return 1
		}
	} else {
		db, err := common.InitDatabase(ctx, cfg, *inmem, logger)
		if err != nil {
			logger.Error("failed to initialize database", "error", err)
			return 1
		}
		defer db.Cleanup()
		n, err = db.Records.InsertMany(ctx, recs)
		if err != nil {
			logger.Error("upload failed", "error", err)
			return 1
		}
	}
	fmt.Printf("Uploaded %d records\n", n)
	return 0
}

func readRuns(logger *slog.Logger, paths []string) ([]entity.PalletRecord, error) {
	svc := export.NewService(logger)
	var recs []entity.PalletRecord
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		run, err := svc.ReadJSON(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		recs = append(recs, run.Records...)
	}
	return recs, nil
}
