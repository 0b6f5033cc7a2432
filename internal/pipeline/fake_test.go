package pipeline

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/playback"
	"github.com/iabetor/speakit/internal/store"
	"github.com/iabetor/speakit/internal/tts"
)

// fakeOutput 记录打开的流，不驱动设备。
type fakeOutput struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (o *fakeOutput) Open(sampleRate int, render playback.RenderFunc) (playback.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := &fakeStream{sampleRate: sampleRate}
	o.streams = append(o.streams, s)
	return s, nil
}

func (o *fakeOutput) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.streams)
}

func (o *fakeOutput) last() *fakeStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.streams) == 0 {
		return nil
	}
	return o.streams[len(o.streams)-1]
}

type fakeStream struct {
	sampleRate int
}

func (s *fakeStream) Start() error   { return nil }
func (s *fakeStream) Suspend() error { return nil }
func (s *fakeStream) Resume() error  { return nil }
func (s *fakeStream) Close() error   { return nil }

// pcm 返回 n 个值为 v 的样本的 base64 PCM16。
func pcm(n int, v int16) string {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = v
	}
	return base64.StdEncoding.EncodeToString(audio.Int16ToBytes(samples))
}

// fakeClient 模拟远程合成接口。gate 返回非 nil 通道时该段请求阻塞到通道关闭。
type fakeClient struct {
	mu         sync.Mutex
	requests   []tts.Request
	voiceCalls int
	voices     []tts.Voice
	err        error
	gate       func(req tts.Request) <-chan struct{}
}

func (c *fakeClient) Synthesize(ctx context.Context, req tts.Request) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	err := c.err
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		if ch := gate(req); ch != nil {
			<-ch
		}
	}
	if err != nil {
		return "", err
	}
	return pcm(2000, 1000), nil
}

func (c *fakeClient) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voiceCalls++
	return c.voices, nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeClient) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// fakeSynth 模拟本地合成器。
type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	rate  int
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) ([]float32, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	samples := make([]float32, 1500)
	for i := range samples {
		samples[i] = 0.5
	}
	return samples, s.rate, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []store.HistoryEntry
}

func (h *fakeHistory) RecordSynthesis(ctx context.Context, e store.HistoryEntry) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return "id", nil
}

// statusLog 收集状态通知。
type statusLog struct {
	mu    sync.Mutex
	kinds []StatusKind
	msgs  []string
}

func (l *statusLog) hooks() *Hooks {
	return &Hooks{OnStatus: func(kind StatusKind, message string) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.kinds = append(l.kinds, kind)
		l.msgs = append(l.msgs, message)
	}}
}

func (l *statusLog) has(kind StatusKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (l *statusLog) lastMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.msgs) == 0 {
		return ""
	}
	return l.msgs[len(l.msgs)-1]
}
