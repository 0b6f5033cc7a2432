package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/iabetor/speakit/internal/logger"
)

const (
	// DefaultAPIURL 是 Google Cloud Text-to-Speech v1 接口地址。
	DefaultAPIURL = "https://texttospeech.googleapis.com/v1"
	// DefaultLanguageCode 是固定的朗读语言。
	DefaultLanguageCode = "ja-JP"
	// SampleRateHertz 是请求的输出采样率。
	SampleRateHertz = 24000
	// AudioEncoding 是请求的输出编码（16-bit 线性 PCM）。
	AudioEncoding = "LINEAR16"
)

// SynthesisInput 是 text:synthesize 的 input 字段，text 与 ssml 只出现一个。
type SynthesisInput struct {
	Text string `json:"text,omitempty"`
	SSML string `json:"ssml,omitempty"`
}

// VoiceSelection 指定语言和音色。
type VoiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

// AudioConfig 指定输出格式。
type AudioConfig struct {
	AudioEncoding   string  `json:"audioEncoding"`
	SpeakingRate    float64 `json:"speakingRate"`
	SampleRateHertz int     `json:"sampleRateHertz"`
}

// SynthesizeRequest 是 text:synthesize 的请求体。
type SynthesizeRequest struct {
	Input       SynthesisInput `json:"input"`
	Voice       VoiceSelection `json:"voice"`
	AudioConfig AudioConfig    `json:"audioConfig"`
}

// UpstreamError 是 Google API 的错误结构。
type UpstreamError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type synthesizeResponse struct {
	AudioContent string         `json:"audioContent"`
	Error        *UpstreamError `json:"error,omitempty"`
}

type voicesResponse struct {
	Voices []Voice        `json:"voices"`
	Error  *UpstreamError `json:"error,omitempty"`
}

// GoogleConfig Google Cloud TTS 客户端配置。
type GoogleConfig struct {
	APIURL       string
	APIKey       string
	LanguageCode string
	Timeout      time.Duration
}

// GoogleClient 直接调用 Google Cloud Text-to-Speech REST 接口，API Key 以查询参数传递。
type GoogleClient struct {
	apiURL       string
	apiKey       string
	languageCode string
	httpClient   *http.Client
}

// NewGoogleClient 创建 Google TTS 客户端。
func NewGoogleClient(cfg GoogleConfig) (*GoogleClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("[tts] Google TTS 需要 API Key")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultLanguageCode
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &GoogleClient{
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		languageCode: cfg.LanguageCode,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// LanguageCode 返回固定的朗读语言。
func (c *GoogleClient) LanguageCode() string { return c.languageCode }

// BuildRequest 组装 text:synthesize 请求体，SSML 优先于纯文本。
func (c *GoogleClient) BuildRequest(req Request) SynthesizeRequest {
	input := SynthesisInput{Text: req.Text}
	if req.SSML != "" {
		input = SynthesisInput{SSML: req.SSML}
	}
	return SynthesizeRequest{
		Input: input,
		Voice: VoiceSelection{LanguageCode: c.languageCode, Name: req.Voice},
		AudioConfig: AudioConfig{
			AudioEncoding:   AudioEncoding,
			SpeakingRate:    req.speakingRate(),
			SampleRateHertz: SampleRateHertz,
		},
	}
}

// Synthesize 合成一段文本，返回 base64 编码的 PCM。
func (c *GoogleClient) Synthesize(ctx context.Context, req Request) (content string, err error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { recordRequest(ctx, "google", start, err) }()

	bodyBytes, err := sonic.Marshal(c.BuildRequest(req))
	if err != nil {
		return "", fmt.Errorf("[tts] 序列化请求体失败: %w", err)
	}

	endpoint := c.apiURL + "/text:synthesize?key=" + url.QueryEscape(c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("[tts] 创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp synthesizeResponse
	status, err := c.do(httpReq, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", upstreamError(resp.Error, status)
	}
	if status != http.StatusOK {
		return "", &APIError{StatusCode: status}
	}
	if resp.AudioContent == "" {
		return "", &APIError{StatusCode: http.StatusBadGateway, Message: "未返回音频数据"}
	}

	logger.Debugf("[tts] google: %d 字节文本合成完成，耗时 %v", len(req.Text)+len(req.SSML), time.Since(start))
	return resp.AudioContent, nil
}

// ListVoices 查询指定语言的音色列表。
func (c *GoogleClient) ListVoices(ctx context.Context) (voices []Voice, err error) {
	start := time.Now()
	defer func() { recordRequest(ctx, "google.voices", start, err) }()

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("languageCode", c.languageCode)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/voices?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建请求失败: %w", err)
	}

	var resp voicesResponse
	status, err := c.do(httpReq, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, upstreamError(resp.Error, status)
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status}
	}
	return resp.Voices, nil
}

// do 发送请求并把响应体解码到 out，返回 HTTP 状态码。
func (c *GoogleClient) do(req *http.Request, out interface{}) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("[tts] 请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("[tts] 读取响应失败: %w", err)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return resp.StatusCode, fmt.Errorf("[tts] 解析响应失败: %w", err)
	}
	return resp.StatusCode, nil
}

func upstreamError(e *UpstreamError, status int) *APIError {
	code := e.Code
	if code == 0 {
		code = status
	}
	if code == 0 || code == http.StatusOK {
		code = http.StatusInternalServerError
	}
	return &APIError{StatusCode: code, Message: e.Message}
}
