package tts

import (
	"context"
	"errors"
	"fmt"
)

// Synthesizer 定义直接输出 PCM 样本的语音合成后端（edge、tencent、piper、say）。
type Synthesizer interface {
	// Synthesize 将文本转换为音频。
	// 返回 float32 音频样本、采样率（Hz）和错误。
	Synthesize(ctx context.Context, text string) ([]float32, int, error)
}

// Client 是云端合成接口：每次调用对应一次网络请求，不做重试。
type Client interface {
	// Synthesize 返回 base64 编码的 16-bit LE 单声道 24 kHz PCM。
	Synthesize(ctx context.Context, req Request) (string, error)
	// ListVoices 返回可用音色。
	ListVoices(ctx context.Context) ([]Voice, error)
}

// ErrMissingInput 表示请求缺少文本（或 SSML）或音色。
var ErrMissingInput = errors.New("text or ssml, and voiceName are required")

// Request 是一次合成请求。Text 与 SSML 互斥，同时给出时使用 SSML。
type Request struct {
	Text  string
	SSML  string
	Voice string
	Rate  float64
}

// Validate 检查必填字段。
func (r Request) Validate() error {
	if (r.Text == "" && r.SSML == "") || r.Voice == "" {
		return ErrMissingInput
	}
	return nil
}

// speakingRate 未设置时按 1.0 处理。
func (r Request) speakingRate() float64 {
	if r.Rate == 0 {
		return 1.0
	}
	return r.Rate
}

// APIError 携带上游服务返回的状态码和原始错误信息。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("上游服务返回状态码 %d", e.StatusCode)
	}
	return e.Message
}
