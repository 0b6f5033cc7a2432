package proxy

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/iabetor/speakit/internal/logger"
)

// SetupTelemetry 安装以 Prometheus 导出的全局 MeterProvider，返回关闭函数和 /metrics 处理器。
func SetupTelemetry(serviceName string) (func(context.Context) error, http.Handler, error) {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	exporter, err := prometheus.New()
	if err != nil {
		logger.Warnf("[proxy] 初始化 prometheus 导出器失败: %v", err)
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		otel.SetMeterProvider(provider)
		return provider.Shutdown, nil, nil
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, promhttp.Handler(), nil
}

var (
	httpOnce     sync.Once
	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram
)

func httpInstruments() {
	httpOnce.Do(func() {
		meter := otel.Meter("github.com/iabetor/speakit/internal/proxy")
		var err error
		httpRequests, err = meter.Int64Counter("speakit.proxy.requests",
			metric.WithDescription("Proxy requests by route and status"))
		if err != nil {
			logger.Warnf("[proxy] 创建指标 requests 失败: %v", err)
		}
		httpLatency, err = meter.Float64Histogram("speakit.proxy.request.duration",
			metric.WithDescription("Proxy request latency"), metric.WithUnit("s"))
		if err != nil {
			logger.Warnf("[proxy] 创建指标 duration 失败: %v", err)
		}
	})
}

// requestLogger 记录每个请求的路由、状态码和耗时。
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// 让 ErrorHandler 先写出状态码
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	elapsed := time.Since(start)
	logger.Debugf("[proxy] %s %s %d %v", c.Method(), c.Path(), status, elapsed)

	httpInstruments()
	attrs := metric.WithAttributes(
		attribute.String("method", c.Method()),
		attribute.String("route", c.Route().Path),
		attribute.Int("status", status),
	)
	ctx := c.UserContext()
	if httpRequests != nil {
		httpRequests.Add(ctx, 1, attrs)
	}
	if httpLatency != nil {
		httpLatency.Record(ctx, elapsed.Seconds(), attrs)
	}
	return nil
}
