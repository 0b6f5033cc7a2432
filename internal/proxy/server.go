// Package proxy 是本地 API 代理：持有服务端 API Key，把浏览器或 CLI 的请求转发到 Google TTS。
package proxy

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/tts"
)

// DefaultBodyLimit 是请求体上限（1 MiB）。
const DefaultBodyLimit = 1 << 20

const (
	msgMissingInput    = "text or ssml, and voiceName are required"
	msgVoicesFailed    = "Failed to fetch voices"
	msgSynthesisFailed = "Failed to synthesize speech"
	msgOriginRejected  = "Not allowed by CORS"
)

// Config 代理服务配置。
type Config struct {
	AllowedOrigins []string
	BodyLimit      int
	// MetricsHandler 非 nil 时挂载到 /metrics。
	MetricsHandler http.Handler
}

// Server 包装 fiber 应用。
type Server struct {
	app      *fiber.App
	upstream tts.Client
	origins  []string
}

// New 创建代理服务。upstream 通常是 *tts.GoogleClient。
func New(upstream tts.Client, cfg Config) *Server {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}

	s := &Server{
		upstream: upstream,
		origins:  cfg.AllowedOrigins,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "speakit-proxy",
		BodyLimit:             cfg.BodyLimit,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestLogger)
	s.app.Use(s.rejectOrigin)
	s.app.Use(cors.New(cors.Config{
		AllowOriginsFunc: s.originAllowed,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Content-Type",
	}))

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/api/voices", s.handleVoices)
	s.app.Post("/api/synthesize", s.handleSynthesize)
	if cfg.MetricsHandler != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(cfg.MetricsHandler))
	}
	return s
}

// App 返回底层 fiber 应用。
func (s *Server) App() *fiber.App { return s.app }

// Listen 在 addr 上监听，阻塞直到关闭。
func (s *Server) Listen(addr string) error {
	logger.Infof("[proxy] 代理服务监听 %s", addr)
	return s.app.Listen(addr)
}

// Shutdown 优雅关闭。
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// rejectOrigin 对白名单外的来源直接返回 403，请求不会转发到上游。
// 没有 Origin 头的请求（curl、CLI）直接放行。
func (s *Server) rejectOrigin(c *fiber.Ctx) error {
	origin := strings.ToLower(c.Get(fiber.HeaderOrigin))
	if origin == "" || s.originAllowed(origin) {
		return c.Next()
	}
	logger.Warnf("[proxy] 拒绝跨域来源: %s", origin)
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": msgOriginRejected})
}

// originAllowed 按前缀匹配白名单，白名单含 "*" 时放行所有来源。
func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.origins {
		if allowed == "*" || (allowed != "" && strings.HasPrefix(origin, allowed)) {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleVoices(c *fiber.Ctx) error {
	voices, err := s.upstream.ListVoices(c.UserContext())
	if err != nil {
		return upstreamFailure(c, err, msgVoicesFailed)
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	return c.JSON(fiber.Map{"voices": voices})
}

func (s *Server) handleSynthesize(c *fiber.Ctx) error {
	var req tts.ProxySynthesizeRequest
	if body := c.Body(); len(body) > 0 {
		if err := sonic.Unmarshal(body, &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	ttsReq := tts.Request{Text: req.Text, SSML: req.SSML, Voice: req.VoiceName, Rate: req.SpeakingRate}
	if err := ttsReq.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgMissingInput})
	}

	content, err := s.upstream.Synthesize(c.UserContext(), ttsReq)
	if err != nil {
		return upstreamFailure(c, err, msgSynthesisFailed)
	}
	return c.JSON(fiber.Map{"audioContent": content})
}

// upstreamFailure 透传上游的状态码和错误信息，其他错误统一返回 500。
func upstreamFailure(c *fiber.Ctx, err error, fallback string) error {
	var apiErr *tts.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = fiber.StatusInternalServerError
		}
		logger.Warnf("[proxy] 上游返回错误 %d: %s", status, apiErr.Message)
		return c.Status(status).JSON(fiber.Map{"error": apiErr.Message})
	}
	logger.Errorf("[proxy] %s: %v", fallback, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// errorHandler 把 fiber 自身的错误（超出请求体上限、404 等）也以 JSON 返回。
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
