package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVHeaderSize 是规范 PCM WAV 头的字节数。
const WAVHeaderSize = 44

// ToWAV 将样本编码为 16-bit 单声道 PCM WAV（44 字节规范头 + 数据块），输出逐字节可复现。
func ToWAV(samples []float32, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	dataSize := uint32(len(samples) * blockAlign)

	var buf bytes.Buffer
	buf.Grow(WAVHeaderSize + int(dataSize))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(Float32ToBytes(samples))

	return buf.Bytes()
}

// ReadWAV 读取 16-bit PCM WAV，多声道取平均混为单声道。
func ReadWAV(r io.ReadSeeker) (*SampleBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("[audio] 不是有效的 WAV 文件")
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("[audio] 仅支持 16-bit PCM，实际为 %d-bit", dec.BitDepth)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("[audio] 读取 PCM 数据失败: %w", err)
	}

	samples := mixdown(pcm)
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	return &SampleBuffer{Samples: samples, SampleRate: pcm.Format.SampleRate}, nil
}

// ReadWAVFile 从文件读取 WAV。
func ReadWAVFile(path string) (*SampleBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[audio] 打开 %s 失败: %w", path, err)
	}
	defer f.Close()
	return ReadWAV(f)
}

func mixdown(pcm *goaudio.IntBuffer) []float32 {
	channels := 1
	if pcm.Format != nil && pcm.Format.NumChannels > 1 {
		channels = pcm.Format.NumChannels
	}

	frames := len(pcm.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += pcm.Data[i*channels+c]
		}
		out[i] = float32(sum) / float32(channels) / negScale
	}
	return out
}
