package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/playback"
)

// Session 持有所有已注册的引擎和当前选择。同一时刻只有当前引擎在播放。
type Session struct {
	mu      sync.Mutex
	engines map[string]Engine
	current Engine
}

// NewSession 用一组引擎创建会话，initial 为初始引擎名称。
func NewSession(initial string, engines ...Engine) (*Session, error) {
	s := &Session{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		s.engines[e.Name()] = e
	}
	cur, ok := s.engines[initial]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, initial)
	}
	s.current = cur
	return s, nil
}

// Engine 返回当前引擎。
func (s *Session) Engine() Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// EngineNames 返回已注册的引擎名称（按字母序）。
func (s *Session) EngineNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SwitchEngine 切换引擎：停止当前播放并使缓存失效。
func (s *Session) SwitchEngine(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.engines[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	for _, e := range s.engines {
		e.Clear()
	}
	if s.current != next {
		logger.Infof("[pipeline] 引擎切换: %s → %s", s.current.Name(), name)
	}
	s.current = next
	return nil
}

// Play 使用当前引擎朗读。
func (s *Session) Play(ctx context.Context, req Request) error {
	return s.Engine().Play(ctx, req)
}

// Export 使用当前引擎导出 WAV。
func (s *Session) Export(ctx context.Context, req Request) ([]byte, error) {
	return s.Engine().Export(ctx, req)
}

// Pause 暂停。
func (s *Session) Pause() error { return s.Engine().Pause() }

// Resume 继续。
func (s *Session) Resume() error { return s.Engine().Resume() }

// TogglePause 在播放与暂停之间切换。
func (s *Session) TogglePause() error { return s.Engine().TogglePause() }

// Stop 停止当前播放，保留缓存。
func (s *Session) Stop() { s.Engine().Stop() }

// Clear 停止播放并清空缓存。
func (s *Session) Clear() { s.Engine().Clear() }

// State 返回当前引擎的播放状态。
func (s *Session) State() playback.State { return s.Engine().State() }

// SetVolume 对所有引擎生效，当前播放立即变化。
func (s *Session) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.engines {
		e.SetVolume(level)
	}
}

// Close 关闭所有引擎。
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.engines {
		e.Close()
	}
}
