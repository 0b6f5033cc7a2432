package playback

import (
	"errors"
	"sync"
)

// fakeOutput 记录打开的流，测试中手动驱动 render。
type fakeOutput struct {
	mu       sync.Mutex
	openErr  error
	startErr error
	streams  []*fakeStream
}

func (o *fakeOutput) Open(sampleRate int, render RenderFunc) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	s := &fakeStream{sampleRate: sampleRate, render: render, startErr: o.startErr}
	o.streams = append(o.streams, s)
	return s, nil
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
	mu         sync.Mutex
	sampleRate int
	render     RenderFunc
	startErr   error
	started    bool
	suspended  bool
	closed     bool
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
	return nil
}

func (s *fakeStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("closed twice")
	}
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// pull 模拟设备线程拉取 frames 帧。
func (s *fakeStream) pull(frames int) []byte {
	out := make([]byte, frames*2)
	s.render(out, frames)
	return out
}
