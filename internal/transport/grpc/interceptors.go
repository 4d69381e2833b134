package grpc

import (
	"context"
	"log/slog"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"trainerbook/backend/internal/metrics"
)

func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// ObserveInterceptor records request count and latency per method and status code.
func ObserveInterceptor(m *metrics.Metrics, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)

		method := path.Base(info.FullMethod)
		code := status.Code(err)
		elapsed := time.Since(started)
		if m != nil {
			m.GRPCRequests.WithLabelValues(method, code.String()).Inc()
			m.GRPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())
		}
		log.Debug("grpc request",
			slog.String("method", method),
			slog.String("code", code.String()),
			slog.Duration("elapsed", elapsed),
		)
		return resp, err
	}
}
