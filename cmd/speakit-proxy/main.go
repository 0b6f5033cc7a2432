package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/iabetor/speakit/internal/config"
	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/proxy"
	"github.com/iabetor/speakit/internal/tts"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（为空时只使用默认值和环境变量）")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Proxy.Port = p
		}
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Google.APIKey == "" {
		logger.Errorf("[main] 未设置 GOOGLE_TTS_API_KEY")
		os.Exit(1)
	}

	upstream, err := tts.NewGoogleClient(tts.GoogleConfig{
		APIURL:       cfg.Google.APIURL,
		APIKey:       cfg.Google.APIKey,
		LanguageCode: cfg.Google.LanguageCode,
		Timeout:      time.Duration(cfg.Google.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Errorf("[main] 创建上游客户端失败: %v", err)
		os.Exit(1)
	}

	shutdownTelemetry, metrics, err := proxy.SetupTelemetry("speakit-proxy")
	if err != nil {
		logger.Warnf("[main] 初始化指标失败: %v", err)
	}

	server := proxy.New(upstream, proxy.Config{
		AllowedOrigins: cfg.Proxy.AllowedOrigins,
		BodyLimit:      cfg.Proxy.BodyLimit,
		MetricsHandler: metrics,
	})
	logger.Infof("[main] 允许的跨域来源: %v", cfg.Proxy.AllowedOrigins)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(fmt.Sprintf(":%d", cfg.Proxy.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorf("[main] 代理服务异常退出: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Infof("[main] 收到信号，正在关闭...")
		if err := server.Shutdown(5 * time.Second); err != nil {
			logger.Warnf("[main] 关闭代理服务失败: %v", err)
		}
	}

	if shutdownTelemetry != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		_ = shutdownTelemetry(sctx)
	}
	logger.Infof("[main] speakit-proxy 已停止")
}
