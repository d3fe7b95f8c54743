package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/pallet-scanner/internal/common"
)

const requestIDHeader = "x-request-id"

var timeNow = time.Now

// LoggingInterceptor tags each call with a request ID (taken from the
// x-request-id header when present) and logs its outcome.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(requestIDHeader); len(vals) > 0 {
				reqID = vals[0]
			}
		}
		if reqID == "" {
			reqID = common.NewRequestID()
		}
		log := logger.With("request_id", reqID, "method", info.FullMethod)
		ctx = common.WithLogger(common.WithRequestID(ctx, reqID), log)

		start := timeNow()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			log.Warn("grpc.call.failed", "code", code.String(), "elapsed_ms", elapsed, "error", err)
		} else {
			log.Info("grpc.call.ok", "elapsed_ms", elapsed)
		}
		return resp, err
	}
}
