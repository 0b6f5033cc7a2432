package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
)

// piperSampleRate 是 piper 输出的固定采样率。
const piperSampleRate = 22050

// PiperEngine 调用 piper CLI 离线合成。
type PiperEngine struct {
	modelPath string
	binary    string
}

// NewPiperEngine 创建指定模型的 Piper 引擎。
func NewPiperEngine(modelPath string) *PiperEngine {
	return &PiperEngine{modelPath: modelPath, binary: "piper"}
}

// Synthesize 将文本写入 piper 标准输入，读取 16-bit LE 单声道原始 PCM。
func (p *PiperEngine) Synthesize(ctx context.Context, text string) (samples []float32, sampleRate int, err error) {
	start := time.Now()
	defer func() { recordRequest(ctx, "piper", start, err) }()

	if p.modelPath == "" {
		return nil, 0, fmt.Errorf("[tts] piper: 未配置模型路径")
	}
	logger.Debugf("[tts] piper: 正在合成 %d 个字符，模型=%s", len([]rune(text)), p.modelPath)

	cmd := exec.CommandContext(ctx, p.binary, "--model", p.modelPath, "--output-raw")
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if s := stderr.String(); s != "" {
			logger.Warnf("[tts] piper stderr: %s", s)
		}
		return nil, 0, fmt.Errorf("[tts] piper 执行失败: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, 0, fmt.Errorf("[tts] piper: 未收到音频数据")
	}

	samples = audio.BytesToFloat32(stdout.Bytes())
	logger.Debugf("[tts] piper: 生成 %d 个样本", len(samples))
	return samples, piperSampleRate, nil
}
