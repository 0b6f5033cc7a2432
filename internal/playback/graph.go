package playback

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/iabetor/speakit/internal/audio"
)

// RenderFunc 由输出设备在音频线程回调，把 frames 帧单声道 16-bit PCM 写入 out。
type RenderFunc func(out []byte, frames int)

// Source 是一次性的样本源，按顺序读出缓冲区内容。
type Source struct {
	samples []float32
	pos     int
}

// NewSource 创建样本源，samples 不会被修改。
func NewSource(samples []float32) *Source {
	return &Source{samples: samples}
}

// Read 复制下一段样本到 dst，返回复制的数量。
func (s *Source) Read(dst []float32) int {
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n
}

// Ended 报告样本是否已全部读出。
func (s *Source) Ended() bool { return s.pos >= len(s.samples) }

// Gain 是可在播放中实时调整的增益节点。
type Gain struct {
	bits atomic.Uint32
}

// NewGain 创建增益节点。
func NewGain(level float64) *Gain {
	g := &Gain{}
	g.Set(level)
	return g
}

// Set 调整增益，负值按 0 处理。
func (g *Gain) Set(level float64) {
	if level < 0 || math.IsNaN(level) {
		level = 0
	}
	g.bits.Store(math.Float32bits(float32(level)))
}

// Level 返回当前增益。
func (g *Gain) Level() float32 {
	return math.Float32frombits(g.bits.Load())
}

// Process 原地乘以增益。
func (g *Gain) Process(buf []float32) {
	level := g.Level()
	if level == 1 {
		return
	}
	for i := range buf {
		buf[i] *= level
	}
}

// Graph 连接 source → gain → destination，destination 即 Render 的输出。
type Graph struct {
	source  *Source
	gain    *Gain
	scratch []float32
	onEnded func()
	ended   sync.Once
}

// NewGraph 创建输出图。样本读完后 onEnded 只会被调用一次。
func NewGraph(samples []float32, volume float64, onEnded func()) *Graph {
	return &Graph{
		source:  NewSource(samples),
		gain:    NewGain(volume),
		onEnded: onEnded,
	}
}

// Gain 返回增益节点。
func (g *Graph) Gain() *Gain { return g.gain }

// Render 实现 RenderFunc。样本不足的部分填充静音，读完后触发 onEnded。
func (g *Graph) Render(out []byte, frames int) {
	need := frames
	if need > len(out)/2 {
		need = len(out) / 2
	}
	if cap(g.scratch) < need {
		g.scratch = make([]float32, need)
	}
	buf := g.scratch[:need]

	n := g.source.Read(buf)
	g.gain.Process(buf[:n])
	audio.EncodePCM16(out, buf[:n])
	clear(out[2*n:])

	if n == 0 && g.source.Ended() {
		g.ended.Do(func() {
			if g.onEnded != nil {
				g.onEnded()
			}
		})
	}
}
