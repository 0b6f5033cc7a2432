package playback

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/iabetor/speakit/internal/logger"
)

// Output 是输出图的 destination：音频设备的抽象。
type Output interface {
	// Open 按采样率打开单声道 16-bit 输出，设备线程通过 render 拉取数据。
	Open(sampleRate int, render RenderFunc) (Stream, error)
}

// Stream 是已打开的输出流。Suspend/Resume 挂起和恢复整个处理时钟。
type Stream interface {
	Start() error
	Suspend() error
	Resume() error
	Close() error
}

// MalgoOutput 使用 malgo (miniaudio) 的默认播放设备。
type MalgoOutput struct {
	ctx    *malgo.AllocatedContext
	mu     sync.Mutex
	closed bool
}

// NewMalgoOutput 初始化 miniaudio 上下文。
func NewMalgoOutput() (*MalgoOutput, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("[playback] 初始化播放上下文失败: %w", err)
	}
	return &MalgoOutput{ctx: ctx}, nil
}

// Open 实现 Output。
func (o *MalgoOutput) Open(sampleRate int, render RenderFunc) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, fmt.Errorf("[playback] 播放上下文已关闭")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = 512
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, _ []byte, frameCount uint32) {
			render(outputSamples, int(frameCount))
		},
	}

	device, err := malgo.InitDevice(o.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("[playback] 初始化播放设备失败: %w", err)
	}
	return &malgoStream{device: device}, nil
}

// Close 释放 miniaudio 上下文。
func (o *MalgoOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.ctx != nil {
		_ = o.ctx.Uninit()
		o.ctx.Free()
		o.ctx = nil
	}
}

type malgoStream struct {
	device *malgo.Device
	once   sync.Once
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("[playback] 启动播放设备失败: %w", err)
	}
	return nil
}

// Suspend 停止设备回调，Source 的读位置保持不变，恢复后从原位置继续。
func (s *malgoStream) Suspend() error {
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("[playback] 挂起播放设备失败: %w", err)
	}
	return nil
}

func (s *malgoStream) Resume() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("[playback] 恢复播放设备失败: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.once.Do(func() {
		// Uninit 会先停止仍在运行的设备
		s.device.Uninit()
		logger.Debugf("[playback] 播放设备已释放")
	})
	return nil
}
