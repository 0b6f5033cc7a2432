package pipeline

import (
	"fmt"
	"runtime"
	"time"

	"github.com/iabetor/speakit/internal/config"
	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/playback"
	"github.com/iabetor/speakit/internal/tts"
)

// NewClient 根据配置创建云端合成客户端：配置了代理地址时经代理访问，否则直连 Google。
func NewClient(cfg *config.Config) (tts.Client, error) {
	timeout := time.Duration(cfg.Google.TimeoutSec) * time.Second
	if cfg.Google.ProxyURL != "" {
		logger.Infof("[pipeline] 经代理访问合成接口: %s", cfg.Google.ProxyURL)
		return tts.NewProxyClient(cfg.Google.ProxyURL, timeout), nil
	}
	return tts.NewGoogleClient(tts.GoogleConfig{
		APIURL:       cfg.Google.APIURL,
		APIKey:       cfg.Google.APIKey,
		LanguageCode: cfg.Google.LanguageCode,
		Timeout:      timeout,
	})
}

// NewEngine 按名称创建引擎。
func NewEngine(name string, cfg *config.Config, output playback.Output, history HistoryRecorder, hooks *Hooks) (Engine, error) {
	var synth tts.Synthesizer
	switch name {
	case "google":
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewCloudEngine(CloudConfig{
			Name:         name,
			Client:       client,
			DefaultVoice: cfg.Google.Voice,
			MaxBytes:     cfg.Chunk.MaxBytes,
			SampleRate:   cfg.Audio.SampleRate,
			Volume:       cfg.Audio.Volume,
			Output:       output,
			History:      history,
			Hooks:        hooks,
		}), nil
	case "edge":
		synth = tts.NewEdgeEngine(cfg.Edge.Voice)
	case "tencent":
		e, err := tts.NewTencentEngine(tts.TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			VoiceType: cfg.Tencent.VoiceType,
			Region:    cfg.Tencent.Region,
			Speed:     cfg.Tencent.Speed,
		})
		if err != nil {
			return nil, err
		}
		synth = e
	case "piper":
		if cfg.Piper.ModelPath == "" {
			return nil, fmt.Errorf("piper 需要配置 model_path")
		}
		synth = tts.NewPiperEngine(cfg.Piper.ModelPath)
	case "say":
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say 引擎仅支持 macOS")
		}
		synth = tts.NewSayEngine(cfg.Say.Voice)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return NewLocalEngine(name, synth, cfg.Chunk.MaxBytes, output, cfg.Audio.Volume, hooks), nil
}

// NewSessionFromConfig 创建配置中的主引擎，并尽量创建其余引擎供切换。
// 主引擎创建失败时返回错误，其余引擎失败只记录日志。
func NewSessionFromConfig(cfg *config.Config, output playback.Output, history HistoryRecorder, hooks *Hooks) (*Session, error) {
	primary, err := NewEngine(cfg.Engine, cfg, output, history, hooks)
	if err != nil {
		return nil, fmt.Errorf("初始化 %s 引擎失败: %w", cfg.Engine, err)
	}

	engines := []Engine{primary}
	for _, name := range []string{"google", "edge", "tencent", "piper", "say"} {
		if name == cfg.Engine {
			continue
		}
		e, err := NewEngine(name, cfg, output, history, hooks)
		if err != nil {
			logger.Debugf("[pipeline] 跳过 %s 引擎: %v", name, err)
			continue
		}
		engines = append(engines, e)
	}
	return NewSession(cfg.Engine, engines...)
}
