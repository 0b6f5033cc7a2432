package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultSampleRate 是云端合成返回的 PCM 采样率。
	DefaultSampleRate = 24000
	// FadeInSamples 是拼接结果开头淡入的样本数（24 kHz 下 50 ms）。
	FadeInSamples = 1200
)

// ErrEmptyAudio 表示合成结果没有任何样本。
var ErrEmptyAudio = errors.New("合成结果为空")

// EncodedAudio 是单段文本的合成结果：base64 编码的 16-bit LE 单声道 PCM。
type EncodedAudio struct {
	Index   int
	Content string
}

// SampleBuffer 是解码后的单声道 float32 样本，播放、缓存和导出都基于它。
type SampleBuffer struct {
	Samples    []float32
	SampleRate int
}

// Len 返回样本数。
func (b *SampleBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration 返回音频时长。
func (b *SampleBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Decode 解码一段 EncodedAudio 为 float32 样本。
func Decode(enc EncodedAudio) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(enc.Content)
	if err != nil {
		return nil, fmt.Errorf("[audio] 第 %d 段 base64 解码失败: %w", enc.Index, err)
	}
	return BytesToFloat32(raw), nil
}

// Concatenate 按输入顺序首尾相接，写入新分配的缓冲区，并只在整体开头做一次淡入。
func Concatenate(parts [][]float32) []float32 {
	total := 0
	for _, p := range parts {
		total += len(p)
	}

	out := make([]float32, total)
	off := 0
	for _, p := range parts {
		off += copy(out[off:], p)
	}
	FadeIn(out, FadeInSamples)
	return out
}

// FadeIn 对前 min(n, len) 个样本做线性淡入：第 i 个样本乘以 i/N。
func FadeIn(samples []float32, n int) {
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		samples[i] = float32(float64(samples[i]) * float64(i) / float64(n))
	}
}

// Assemble 依次解码各段（调用方保证已按 Index 排序），拼接为一个 SampleBuffer。
func Assemble(encoded []EncodedAudio, sampleRate int) (*SampleBuffer, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	parts := make([][]float32, 0, len(encoded))
	for _, enc := range encoded {
		samples, err := Decode(enc)
		if err != nil {
			return nil, err
		}
		parts = append(parts, samples)
	}

	samples := Concatenate(parts)
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	return &SampleBuffer{Samples: samples, SampleRate: sampleRate}, nil
}
