// Package pipeline 把文本预处理、分段合成、拼接缓存和播放串成一次朗读会话。
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iabetor/speakit/internal/playback"
	"github.com/iabetor/speakit/internal/store"
	"github.com/iabetor/speakit/internal/tts"
)

var (
	// ErrEmptyText 表示待朗读文本为空，不会发出任何请求。
	ErrEmptyText = errors.New("请输入要朗读的文本")
	// ErrExportUnsupported 表示当前引擎不支持导出。
	ErrExportUnsupported = errors.New("当前引擎不支持导出音频")
	// ErrUnknownEngine 表示引擎名称未注册。
	ErrUnknownEngine = errors.New("未知的引擎")
)

// Request 是一次朗读请求。Voice 为空时使用引擎默认音色，Rate 为 0 时按 1.0 处理。
type Request struct {
	Text  string
	Voice string
	Rate  float64
}

func (r Request) rate() float64 {
	if r.Rate == 0 {
		return 1.0
	}
	return r.Rate
}

// Engine 是可独立播放、暂停和停止的朗读引擎。
type Engine interface {
	Name() string
	// Play 合成并开始播放。播放开始后立即返回，不等待播放结束。
	// 被 Stop 取消时返回 nil。
	Play(ctx context.Context, req Request) error
	// Export 返回 WAV 文件内容。
	Export(ctx context.Context, req Request) ([]byte, error)
	Pause() error
	Resume() error
	TogglePause() error
	// Stop 停止播放并取消进行中的合成，保留缓存。
	Stop()
	// Clear 停止并清空缓存。
	Clear()
	SetVolume(level float64)
	State() playback.State
	Close()
}

// HistoryRecorder 记录成功的合成，*store.DB 实现了该接口。
type HistoryRecorder interface {
	RecordSynthesis(ctx context.Context, e store.HistoryEntry) (string, error)
}

// StatusKind 是状态通知的类型。
type StatusKind string

const (
	StatusGenerating StatusKind = "generating"
	StatusAssembling StatusKind = "assembling"
	StatusFromCache  StatusKind = "from-cache"
	StatusPlaying    StatusKind = "playing"
	StatusCompleted  StatusKind = "completed"
	StatusError      StatusKind = "error"
)

// Hooks 是会话向调用方（界面、CLI）推送的通知，字段均可为 nil。
type Hooks struct {
	OnStatus   func(kind StatusKind, message string)
	OnProgress tts.ProgressFunc
}

func (h *Hooks) status(kind StatusKind, message string) {
	if h != nil && h.OnStatus != nil {
		h.OnStatus(kind, message)
	}
}

func (h *Hooks) progress(completed, total int) {
	if h != nil && h.OnProgress != nil {
		h.OnProgress(completed, total)
	}
}

// checkText 在发出任何请求前拒绝空文本。
func checkText(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyText
	}
	return nil
}

// runGuard 跟踪当前这一轮合成。Stop 或新一轮 begin 会让旧一轮失效，
// 失效的一轮在挂起点之后丢弃结果。
type runGuard struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func (g *runGuard) begin(ctx context.Context) (context.Context, uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	return runCtx, g.gen
}

func (g *runGuard) live(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen == gen
}

// commit 在 gen 仍有效时于锁内执行 fn。并发的 stop 要么先于检查（fn 不执行），
// 要么等 fn 返回后才生效。
func (g *runGuard) commit(gen uint64, fn func() error) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return false, nil
	}
	return true, fn()
}

func (g *runGuard) end(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen == gen && g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

func (g *runGuard) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}
