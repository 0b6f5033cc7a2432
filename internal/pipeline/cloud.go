package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/playback"
	"github.com/iabetor/speakit/internal/store"
	"github.com/iabetor/speakit/internal/text"
	"github.com/iabetor/speakit/internal/tts"
)

// CloudConfig 是 CloudEngine 的构造参数。
type CloudConfig struct {
	Name         string
	Client       tts.Client
	DefaultVoice string
	MaxBytes     int
	SampleRate   int
	Volume       float64
	Output       playback.Output
	History      HistoryRecorder
	Hooks        *Hooks
}

// CloudEngine 通过远程接口分段并发合成，拼接后缓存并播放。
type CloudEngine struct {
	name       string
	client     tts.Client
	chunker    *text.Chunker
	cache      *audio.BufferCache
	player     *playback.Controller
	sampleRate int
	history    HistoryRecorder
	hooks      *Hooks
	guard      runGuard

	voiceMu      sync.Mutex
	defaultVoice string
}

// NewCloudEngine 创建云端引擎。
func NewCloudEngine(cfg CloudConfig) *CloudEngine {
	if cfg.Name == "" {
		cfg.Name = "google"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}

	e := &CloudEngine{
		name:         cfg.Name,
		client:       cfg.Client,
		chunker:      text.NewChunker(cfg.MaxBytes),
		cache:        audio.NewBufferCache(),
		player:       playback.NewController(cfg.Output),
		sampleRate:   cfg.SampleRate,
		history:      cfg.History,
		hooks:        cfg.Hooks,
		defaultVoice: cfg.DefaultVoice,
	}
	if cfg.Volume > 0 {
		e.player.SetVolume(cfg.Volume)
	}
	e.player.SetOnComplete(func() { e.hooks.status(StatusCompleted, "播放完成") })
	return e
}

// Name 返回引擎名称。
func (e *CloudEngine) Name() string { return e.name }

// Cache 返回引擎的音频缓存。
func (e *CloudEngine) Cache() *audio.BufferCache { return e.cache }

// Play 规范化文本后播放：缓存命中时直接播放，否则分段并发合成、拼接并写入缓存。
func (e *CloudEngine) Play(ctx context.Context, req Request) error {
	if err := checkText(req.Text); err != nil {
		return err
	}

	e.player.Stop()
	runCtx, gen := e.guard.begin(ctx)
	defer e.guard.end(gen)

	buf, err := e.render(runCtx, req, func() bool { return e.guard.live(gen) })
	if !e.guard.live(gen) {
		logger.Infof("[pipeline] 合成已取消")
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
		logger.Infof("[pipeline] 合成已取消")
		return nil
	}
	if err != nil {
		e.hooks.status(StatusError, err.Error())
		return fmt.Errorf("播放失败: %w", err)
	}
	e.hooks.status(StatusPlaying, "正在播放")
	return nil
}

// Export 返回 WAV 文件内容，与播放共用缓存。
func (e *CloudEngine) Export(ctx context.Context, req Request) ([]byte, error) {
	if err := checkText(req.Text); err != nil {
		return nil, err
	}
	buf, err := e.render(ctx, req, func() bool { return true })
	if err != nil {
		return nil, err
	}
	return audio.ToWAV(buf.Samples, buf.SampleRate), nil
}

// render 取得 req 对应的音频。live 返回 false 时丢弃结果，不写入缓存。
func (e *CloudEngine) render(ctx context.Context, req Request, live func() bool) (*audio.SampleBuffer, error) {
	normalized := text.Normalize(req.Text)
	if normalized == "" {
		return nil, ErrEmptyText
	}

	voice, err := e.resolveVoice(ctx, req.Voice)
	if err != nil {
		return nil, err
	}

	key := audio.CacheKey{Text: normalized, Voice: voice, Rate: req.rate()}
	if buf, ok := e.cache.Get(key); ok {
		logger.Infof("[pipeline] 使用缓存音频 (%.2fs)", buf.Duration().Seconds())
		e.hooks.status(StatusFromCache, "从缓存播放")
		e.record(ctx, key, 0, buf, true)
		return buf, nil
	}

	chunks := e.chunker.Split(normalized)
	logger.Infof("[pipeline] 文本分为 %d 段，音色=%s，语速=%.2f", len(chunks), voice, key.Rate)
	e.hooks.status(StatusGenerating, fmt.Sprintf("正在生成语音... (0/%d)", len(chunks)))

	encoded, err := tts.SynthesizeAll(ctx, e.client, chunks, voice, key.Rate, func(completed, total int) {
		e.hooks.progress(completed, total)
		e.hooks.status(StatusGenerating, fmt.Sprintf("正在生成语音... (%d/%d)", completed, total))
	})
	if err != nil {
		return nil, err
	}
	if !live() {
		return nil, context.Canceled
	}

	e.hooks.status(StatusAssembling, "正在拼接音频...")
	buf, err := audio.Assemble(encoded, e.sampleRate)
	if err != nil {
		return nil, err
	}
	if !live() {
		return nil, context.Canceled
	}

	e.cache.Put(key, buf)
	e.record(ctx, key, len(chunks), buf, false)
	return buf, nil
}

// resolveVoice 依次使用请求音色、配置音色和音色列表中的默认音色。
func (e *CloudEngine) resolveVoice(ctx context.Context, voice string) (string, error) {
	if voice != "" {
		return voice, nil
	}

	e.voiceMu.Lock()
	defer e.voiceMu.Unlock()
	if e.defaultVoice != "" {
		return e.defaultVoice, nil
	}

	voices, err := e.client.ListVoices(ctx)
	if err != nil {
		return "", fmt.Errorf("获取音色列表失败: %w", err)
	}
	v, ok := tts.DefaultVoice(voices)
	if !ok {
		return "", errors.New("没有可用的音色")
	}
	logger.Infof("[pipeline] 使用默认音色 %s", v.Name)
	e.defaultVoice = v.Name
	return v.Name, nil
}

func (e *CloudEngine) record(ctx context.Context, key audio.CacheKey, chunks int, buf *audio.SampleBuffer, fromCache bool) {
	if e.history == nil {
		return
	}
	_, err := e.history.RecordSynthesis(context.WithoutCancel(ctx), store.HistoryEntry{
		TextHash:  store.HashText(key.Text),
		Preview:   store.Preview(key.Text),
		Engine:    e.name,
		Voice:     key.Voice,
		Rate:      key.Rate,
		Chunks:    chunks,
		Samples:   buf.Len(),
		FromCache: fromCache,
	})
	if err != nil {
		logger.Warnf("[pipeline] 记录合成历史失败: %v", err)
	}
}

// Pause 暂停播放。
func (e *CloudEngine) Pause() error { return e.player.Pause() }

// Resume 继续播放。
func (e *CloudEngine) Resume() error { return e.player.Resume() }

// TogglePause 切换暂停状态。
func (e *CloudEngine) TogglePause() error { return e.player.TogglePause() }

// Stop 取消进行中的合成并停止播放，缓存保留以便重播。
func (e *CloudEngine) Stop() {
	e.guard.stop()
	e.player.Stop()
}

// Clear 停止并清空缓存。
func (e *CloudEngine) Clear() {
	e.Stop()
	e.cache.Invalidate()
}

// SetVolume 调整音量。
func (e *CloudEngine) SetVolume(level float64) { e.player.SetVolume(level) }

// State 返回播放状态。
func (e *CloudEngine) State() playback.State { return e.player.State() }

// Close 释放播放资源。
func (e *CloudEngine) Close() {
	e.Stop()
	e.player.Close()
}
