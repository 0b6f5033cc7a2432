package tts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/iabetor/speakit/internal/logger"
)

const meterName = "github.com/iabetor/speakit/internal/tts"

type instruments struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	chunks   metric.Int64Histogram
}

var (
	instOnce sync.Once
	inst     instruments
)

// getInstruments 懒加载 otel 指标。全局 MeterProvider 在之后设置时也会生效。
func getInstruments() *instruments {
	instOnce.Do(func() {
		meter := otel.Meter(meterName)
		var err error
		inst.requests, err = meter.Int64Counter("speakit.tts.requests",
			metric.WithDescription("Synthesis and voice list requests by backend and outcome"))
		if err != nil {
			logger.Warnf("[tts] 创建指标 requests 失败: %v", err)
		}
		inst.latency, err = meter.Float64Histogram("speakit.tts.request.duration",
			metric.WithDescription("Request latency"), metric.WithUnit("s"))
		if err != nil {
			logger.Warnf("[tts] 创建指标 duration 失败: %v", err)
		}
		inst.chunks, err = meter.Int64Histogram("speakit.tts.batch.chunks",
			metric.WithDescription("Number of chunks per synthesis batch"))
		if err != nil {
			logger.Warnf("[tts] 创建指标 chunks 失败: %v", err)
		}
	})
	return &inst
}

func recordRequest(ctx context.Context, backend string, start time.Time, err error) {
	i := getInstruments()
	outcome := "ok"
	var apiErr *APIError
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case errors.As(err, &apiErr):
		outcome = "upstream_error"
	default:
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	)
	if i.requests != nil {
		i.requests.Add(ctx, 1, attrs)
	}
	if i.latency != nil {
		i.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

func recordBatch(ctx context.Context, n int) {
	if i := getInstruments(); i.chunks != nil {
		i.chunks.Record(ctx, int64(n))
	}
}
