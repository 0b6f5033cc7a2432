package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/playback"
	"github.com/iabetor/speakit/internal/text"
	"github.com/iabetor/speakit/internal/tts"
)

// LocalEngine 使用返回 PCM 样本的合成器（edge、tencent、piper、say）逐段合成后播放。
// 不缓存，不支持导出。
type LocalEngine struct {
	name    string
	synth   tts.Synthesizer
	chunker *text.Chunker
	player  *playback.Controller
	hooks   *Hooks
	guard   runGuard
}

// NewLocalEngine 创建本地引擎。
func NewLocalEngine(name string, synth tts.Synthesizer, maxBytes int, output playback.Output, volume float64, hooks *Hooks) *LocalEngine {
	e := &LocalEngine{
		name:    name,
		synth:   synth,
		chunker: text.NewChunker(maxBytes),
		player:  playback.NewController(output),
		hooks:   hooks,
	}
	if volume > 0 {
		e.player.SetVolume(volume)
	}
	e.player.SetOnComplete(func() { e.hooks.status(StatusCompleted, "播放完成") })
	return e
}

// Name 返回引擎名称。
func (e *LocalEngine) Name() string { return e.name }

// Play 逐段合成并拼接后播放。音色和语速由合成器自身的配置决定。
func (e *LocalEngine) Play(ctx context.Context, req Request) error {
	if err := checkText(req.Text); err != nil {
		return err
	}

	e.player.Stop()
	runCtx, gen := e.guard.begin(ctx)
	defer e.guard.end(gen)

	buf, err := e.synthesize(runCtx, text.Normalize(req.Text))
	if !e.guard.live(gen) {
		logger.Infof("[pipeline] %s 合成已取消", e.name)
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		e.hooks.status(StatusError, err.Error())
		return err
	}

	live, err := e.guard.commit(gen, func() error {
		return e.player.Play(buf, e.player.Volume())
	})
	if !live {
		logger.Infof("[pipeline] %s 合成已取消", e.name)
		return nil
	}
	if err != nil {
		e.hooks.status(StatusError, err.Error())
		return fmt.Errorf("播放失败: %w", err)
	}
	e.hooks.status(StatusPlaying, "正在播放")
	return nil
}

func (e *LocalEngine) synthesize(ctx context.Context, normalized string) (*audio.SampleBuffer, error) {
	chunks := e.chunker.Split(normalized)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}

	e.hooks.status(StatusGenerating, fmt.Sprintf("正在生成语音... (0/%d)", len(chunks)))
	parts := make([][]float32, 0, len(chunks))
	sampleRate := 0
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, rate, err := e.synth.Synthesize(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("%s 合成失败: %w", e.name, err)
		}
		if sampleRate == 0 {
			sampleRate = rate
		} else if rate != sampleRate {
			return nil, fmt.Errorf("%s 返回的采样率不一致: %d != %d", e.name, rate, sampleRate)
		}
		parts = append(parts, samples)
		e.hooks.progress(c.Index+1, len(chunks))
	}

	samples := audio.Concatenate(parts)
	if len(samples) == 0 {
		return nil, audio.ErrEmptyAudio
	}
	return &audio.SampleBuffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Export 本地引擎不支持导出。
func (e *LocalEngine) Export(context.Context, Request) ([]byte, error) {
	return nil, ErrExportUnsupported
}

// Pause 暂停播放。
func (e *LocalEngine) Pause() error { return e.player.Pause() }

// Resume 继续播放。
func (e *LocalEngine) Resume() error { return e.player.Resume() }

// TogglePause 切换暂停状态。
func (e *LocalEngine) TogglePause() error { return e.player.TogglePause() }

// Stop 取消合成并停止播放。
func (e *LocalEngine) Stop() {
	e.guard.stop()
	e.player.Stop()
}

// Clear 与 Stop 相同，本地引擎没有缓存。
func (e *LocalEngine) Clear() { e.Stop() }

// SetVolume 调整音量。
func (e *LocalEngine) SetVolume(level float64) { e.player.SetVolume(level) }

// State 返回播放状态。
func (e *LocalEngine) State() playback.State { return e.player.State() }

// Close 释放播放资源。
func (e *LocalEngine) Close() {
	e.Stop()
	e.player.Close()
}
