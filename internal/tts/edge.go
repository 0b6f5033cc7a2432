package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/logger"
)

// DefaultEdgeVoice 是默认的日语 Edge 音色。
const DefaultEdgeVoice = "ja-JP-NanamiNeural"

// EdgeEngine 使用微软 Edge TTS 合成，返回 MP3 后用 go-mp3 解码为 PCM。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定音色的 Edge TTS 引擎。
func NewEdgeEngine(voice string) *EdgeEngine {
	if voice == "" {
		voice = DefaultEdgeVoice
	}
	return &EdgeEngine{voice: voice}
}

// Synthesize 将文本合成为单声道 float32 音频样本。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) (samples []float32, sampleRate int, err error) {
	start := time.Now()
	defer func() { recordRequest(ctx, "edge", start, err) }()

	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，音色=%s", len([]rune(text)), e.voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] edge-tts 创建实例失败: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] edge-tts 开始流式合成失败: %w", err)
	}

	// type=="audio" 的消息携带 MP3 数据
	var mp3Buf bytes.Buffer
	for msg := range ch {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}
	if mp3Buf.Len() == 0 {
		return nil, 0, fmt.Errorf("[tts] edge-tts: 未收到音频数据")
	}

	return decodeMP3(ctx, "edge-tts", mp3Buf.Bytes())
}

// decodeMP3 解码 MP3（go-mp3 固定输出双声道 16-bit LE）并混为单声道。
func decodeMP3(ctx context.Context, source string, data []byte) ([]float32, int, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] %s MP3 解码失败: %w", source, err)
	}

	var pcm bytes.Buffer
	buf := make([]byte, 8192)
	for {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		n, err := decoder.Read(buf)
		pcm.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("[tts] %s 读取 PCM 数据失败: %w", source, err)
		}
	}

	samples := audio.StereoBytesToMono(pcm.Bytes())
	logger.Debugf("[tts] %s: %d 字节 MP3 解码为 %d 个样本，采样率 %d Hz",
		source, len(data), len(samples), decoder.SampleRate())
	return samples, decoder.SampleRate(), nil
}
