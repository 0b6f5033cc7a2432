package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// ProxySynthesizeRequest 是本地代理 /api/synthesize 的请求体。
type ProxySynthesizeRequest struct {
	Text         string  `json:"text,omitempty"`
	SSML         string  `json:"ssml,omitempty"`
	VoiceName    string  `json:"voiceName"`
	SpeakingRate float64 `json:"speakingRate,omitempty"`
}

type proxyResponse struct {
	AudioContent string  `json:"audioContent"`
	Voices       []Voice `json:"voices"`
	Error        string  `json:"error"`
}

// ProxyClient 通过本地代理访问合成接口，API Key 只保存在代理一侧。
type ProxyClient struct {
	baseURL      string
	languageCode string
	httpClient   *http.Client
}

// NewProxyClient 创建代理客户端，baseURL 形如 http://localhost:3001。
func NewProxyClient(baseURL string, timeout time.Duration) *ProxyClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ProxyClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		languageCode: DefaultLanguageCode,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Synthesize 经代理合成一段文本。
func (c *ProxyClient) Synthesize(ctx context.Context, req Request) (content string, err error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	start := time.Now()
	defer func() { recordRequest(ctx, "proxy", start, err) }()

	bodyBytes, err := sonic.Marshal(ProxySynthesizeRequest{
		Text:         req.Text,
		SSML:         req.SSML,
		VoiceName:    req.Voice,
		SpeakingRate: req.speakingRate(),
	})
	if err != nil {
		return "", fmt.Errorf("[tts] 序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/synthesize", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("[tts] 创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if resp.AudioContent == "" {
		return "", &APIError{StatusCode: http.StatusBadGateway, Message: "未返回音频数据"}
	}
	return resp.AudioContent, nil
}

// ListVoices 经代理查询音色，只保留固定语言的音色。
func (c *ProxyClient) ListVoices(ctx context.Context) (voices []Voice, err error) {
	start := time.Now()
	defer func() { recordRequest(ctx, "proxy.voices", start, err) }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建请求失败: %w", err)
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	return FilterByLanguage(resp.Voices, c.languageCode), nil
}

func (c *ProxyClient) do(req *http.Request) (*proxyResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[tts] 请求代理失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[tts] 读取响应失败: %w", err)
	}

	var out proxyResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, fmt.Errorf("[tts] 解析响应失败: %w", err)
	}
	if out.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	return &out, nil
}
