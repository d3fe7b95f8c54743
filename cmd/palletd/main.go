package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
	"github.com/joseph-ayodele/pallet-scanner/internal/ingest"
	"github.com/joseph-ayodele/pallet-scanner/internal/pipeline"
	"github.com/joseph-ayodele/pallet-scanner/internal/pipeline/backends"
	"github.com/joseph-ayodele/pallet-scanner/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	inmem := flag.Bool("inmem", false, "use an in-memory SQLite database")
	flag.Parse()

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}
	if !*inmem {
		if err := cfg.ValidateServer(); err != nil {
			logger.Error("invalid configuration", "error", err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := common.InitDatabase(ctx, cfg, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return 1
	}
	defer db.Cleanup()

	deps, err := backends.Build(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to configure scan backends", "error", err)
		return 1
	}
	ingestor := ingest.NewFSIngestor(ingest.Options{SkipHidden: true}, logger)
	p := pipeline.New(logger, deps, cfg.Scan.Workers, ingestor, db.Records)

	if cfg.Server.ScanRoot == "" {
		logger.Warn("SCAN_ROOT not set; Scan requests will be refused")
	}
	grpcServer, hs := server.NewGRPCServer(server.NewPalletService(p, cfg.Server.ScanRoot, logger), logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		return 1
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String(), "service", server.ServiceName)

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		logger.Error("grpc serve failed", "error", err)
		return 1
	}
	hs.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("stopped")
	return 0
}
