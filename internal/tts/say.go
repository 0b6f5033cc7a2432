package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
)

// saySampleRate 是 afconvert 转换后的采样率。
const saySampleRate = 22050

// SayEngine 使用 macOS 内置 say 命令合成，仅在 macOS 上可用。
type SayEngine struct {
	voice string // macOS 音色名称，如 "Kyoko"
}

// NewSayEngine 创建 say 引擎，voice 为空时使用系统默认音色。
func NewSayEngine(voice string) *SayEngine {
	return &SayEngine{voice: voice}
}

// Synthesize 先用 say 输出 AIFF，再用 afconvert 转为 16-bit LE 单声道 WAV 读回。
func (s *SayEngine) Synthesize(ctx context.Context, text string) (samples []float32, sampleRate int, err error) {
	start := time.Now()
	defer func() { recordRequest(ctx, "say", start, err) }()

	logger.Debugf("[tts] say: 正在合成 %d 个字符", len([]rune(text)))

	tmpFile, err := os.CreateTemp("", "speakit-say-*.aiff")
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] say: 创建临时文件失败: %w", err)
	}
	aiffPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(aiffPath)

	wavPath := aiffPath + ".wav"
	defer os.Remove(wavPath)

	args := []string{"-o", aiffPath}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, text)

	if err := run(ctx, "say", args...); err != nil {
		return nil, 0, err
	}
	if err := run(ctx, "afconvert", "-f", "WAVE", "-d", fmt.Sprintf("LEI16@%d", saySampleRate), "-c", "1", aiffPath, wavPath); err != nil {
		return nil, 0, err
	}

	buf, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] say: %w", err)
	}
	logger.Debugf("[tts] say: 生成 %d 个样本", buf.Len())
	return buf.Samples, buf.SampleRate, nil
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("[tts] %s 执行失败: %w, stderr: %s", name, err, stderr.String())
	}
	return nil
}
