// Package playback 管理单个输出会话：状态机、输出图（source → gain → destination）与音频设备。
package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
)

var (
	// ErrNotPlaying 表示在 Idle 状态下请求暂停或继续。
	ErrNotPlaying = errors.New("当前没有正在播放的音频")
	// ErrEmptyBuffer 表示要播放的缓冲区没有样本。
	ErrEmptyBuffer = errors.New("音频缓冲区为空")
)

// Controller 控制播放。任何时刻最多只有一个活动的输出会话，开始新会话前旧会话会被完全释放。
type Controller struct {
	mu         sync.Mutex
	output     Output
	state      *StateMachine
	stream     Stream
	graph      *Graph
	volume     float64
	session    uint64
	onComplete func()

	onStateChange func(from, to State)
	pending       []stateChange
}

type stateChange struct{ from, to State }

// NewController 创建播放控制器。
func NewController(output Output) *Controller {
	c := &Controller{
		output: output,
		state:  NewStateMachine(),
		volume: 1.0,
	}
	// 状态只在持有 c.mu 时变化，回调先排队，由 unlock 在锁外触发
	c.state.SetOnChange(func(from, to State) {
		c.pending = append(c.pending, stateChange{from, to})
	})
	return c
}

// SetOnComplete 注册自然播放结束时的回调（停止不会触发）。
func (c *Controller) SetOnComplete(fn func()) {
	c.mu.Lock()
	c.onComplete = fn
	c.mu.Unlock()
}

// SetOnStateChange 注册状态变化回调。回调在锁外执行，可以调用 Stop、Pause 等方法。
func (c *Controller) SetOnStateChange(fn func(from, to State)) {
	c.mu.Lock()
	c.onStateChange = fn
	c.mu.Unlock()
}

// State 返回当前状态。
func (c *Controller) State() State {
	return c.state.Current()
}

// Play 释放旧会话后建立新的输出图并立即开始播放。
// 任何构建失败都会释放已获取的资源，状态回到 Idle。
func (c *Controller) Play(buf *audio.SampleBuffer, volume float64) error {
	if buf.Len() == 0 {
		return ErrEmptyBuffer
	}

	c.mu.Lock()
	defer c.unlock()

	c.releaseLocked()
	c.state.ForceIdle()
	c.session++
	id := c.session
	c.volume = volume

	// 结束通知来自设备线程，不能在回调内释放设备
	graph := NewGraph(buf.Samples, volume, func() { go c.finish(id) })

	stream, err := c.output.Open(buf.SampleRate, graph.Render)
	if err != nil {
		c.state.ForceIdle()
		return fmt.Errorf("音频输出初始化失败: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		c.state.ForceIdle()
		return fmt.Errorf("音频输出启动失败: %w", err)
	}

	c.stream = stream
	c.graph = graph
	c.state.Transition(StatePlaying)
	logger.Infof("[playback] 开始播放 %d 个样本 (%.2fs)", buf.Len(), buf.Duration().Seconds())
	return nil
}

// Pause 挂起输出时钟。已暂停时为无操作。
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.unlock()

	switch c.state.Current() {
	case StatePaused:
		return nil
	case StateIdle:
		return ErrNotPlaying
	}
	if err := c.stream.Suspend(); err != nil {
		c.failLocked()
		return err
	}
	c.state.Transition(StatePaused)
	return nil
}

// Resume 恢复输出时钟，从暂停位置继续。正在播放时为无操作。
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.unlock()

	switch c.state.Current() {
	case StatePlaying:
		return nil
	case StateIdle:
		return ErrNotPlaying
	}
	if err := c.stream.Resume(); err != nil {
		c.failLocked()
		return err
	}
	c.state.Transition(StatePlaying)
	return nil
}

// TogglePause 在 Playing 与 Paused 之间切换。
func (c *Controller) TogglePause() error {
	if c.State() == StatePaused {
		return c.Resume()
	}
	return c.Pause()
}

// Stop 停止并释放输出，Idle 状态下调用也是安全的。
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.unlock()

	if c.stream != nil {
		logger.Infof("[playback] 播放已停止")
	}
	c.session++
	c.releaseLocked()
	c.state.ForceIdle()
}

// SetVolume 实时调整增益，对当前播放立即生效，并作为之后播放的默认值。
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = level
	if c.graph != nil {
		c.graph.Gain().Set(level)
	}
}

// Volume 返回当前音量。
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Close 释放所有资源。
func (c *Controller) Close() {
	c.Stop()
}

// finish 处理自然播放结束。会话已被替换或停止时忽略。
func (c *Controller) finish(id uint64) {
	c.mu.Lock()
	if id != c.session || c.stream == nil {
		c.mu.Unlock()
		return
	}
	c.releaseLocked()
	c.state.Transition(StateIdle)
	fn := c.onComplete
	c.unlock()

	logger.Infof("[playback] 播放完成")
	if fn != nil {
		fn()
	}
}

// unlock 释放 c.mu，然后按顺序触发本次临界区内排队的状态变化。
func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	fn := c.onStateChange
	c.mu.Unlock()

	if fn == nil {
		return
	}
	for _, ch := range pending {
		fn(ch.from, ch.to)
	}
}

func (c *Controller) failLocked() {
	c.session++
	c.releaseLocked()
	c.state.ForceIdle()
}

func (c *Controller) releaseLocked() {
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			logger.Warnf("[playback] 释放输出失败: %v", err)
		}
	}
	c.stream = nil
	c.graph = nil
}
