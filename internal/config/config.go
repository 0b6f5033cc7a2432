package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 是 speakit 的顶层配置结构。
type Config struct {
	// Engine 选择默认引擎: google, edge, tencent, piper, say。
	Engine  string        `yaml:"engine"`
	Google  GoogleConfig  `yaml:"google"`
	Chunk   ChunkConfig   `yaml:"chunk"`
	Audio   AudioConfig   `yaml:"audio"`
	Edge    EdgeConfig    `yaml:"edge"`
	Tencent TencentConfig `yaml:"tencent"`
	Piper   PiperConfig   `yaml:"piper"`
	Say     SayConfig     `yaml:"say"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
}

// GoogleConfig Google Cloud TTS 配置。
// ProxyURL 非空时经本地代理访问，API Key 只保存在代理一侧。
type GoogleConfig struct {
	APIURL       string  `yaml:"api_url"`
	APIKey       string  `yaml:"api_key"`
	ProxyURL     string  `yaml:"proxy_url"`
	LanguageCode string  `yaml:"language_code"`
	Voice        string  `yaml:"voice"`
	SpeakingRate float64 `yaml:"speaking_rate"`
	TimeoutSec   int     `yaml:"timeout_sec"`
}

// ChunkConfig 文本分段配置。
type ChunkConfig struct {
	MaxBytes int `yaml:"max_bytes"`
}

// AudioConfig 音频参数。
type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	VoiceType int64   `yaml:"voice_type"`
	Region    string  `yaml:"region"`
	Speed     float64 `yaml:"speed"`
}

// PiperConfig Piper TTS 配置。
type PiperConfig struct {
	ModelPath string `yaml:"model_path"`
}

// SayConfig macOS say 配置。
type SayConfig struct {
	Voice string `yaml:"voice"`
}

// ProxyConfig 本地代理服务配置。
type ProxyConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	FrontendURL    string   `yaml:"frontend_url"`
	BodyLimit      int      `yaml:"body_limit"`
}

// StoreConfig SQLite 存储配置。
type StoreConfig struct {
	Path          string `yaml:"path"`
	VoiceTTLHours int    `yaml:"voice_ttl_hours"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 先加载当前目录下的 .env（不存在则忽略），再展开 ${VAR_NAME} 形式的环境变量。
// path 为空时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}

		expanded := os.Expand(string(data), os.Getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	applyEnv(cfg)
	setDefaults(cfg)
	return cfg, nil
}

// applyEnv 用环境变量补齐敏感字段，配置文件中的值优先。
func applyEnv(cfg *Config) {
	if cfg.Google.APIKey == "" {
		cfg.Google.APIKey = os.Getenv("GOOGLE_TTS_API_KEY")
	}
	if cfg.Proxy.FrontendURL == "" {
		cfg.Proxy.FrontendURL = os.Getenv("FRONTEND_URL")
	}
	if cfg.Google.ProxyURL == "" {
		cfg.Google.ProxyURL = os.Getenv("SPEAKIT_API_URL")
	}
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Engine == "" {
		cfg.Engine = "google"
	}
	if cfg.Google.APIURL == "" {
		cfg.Google.APIURL = "https://texttospeech.googleapis.com/v1"
	}
	if cfg.Google.LanguageCode == "" {
		cfg.Google.LanguageCode = "ja-JP"
	}
	if cfg.Google.SpeakingRate == 0 {
		cfg.Google.SpeakingRate = 1.0
	}
	if cfg.Google.TimeoutSec == 0 {
		cfg.Google.TimeoutSec = 60
	}
	if cfg.Chunk.MaxBytes == 0 {
		cfg.Chunk.MaxBytes = 4500
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 24000
	}
	if cfg.Audio.Volume == 0 {
		cfg.Audio.Volume = 1.0
	}
	if cfg.Edge.Voice == "" {
		cfg.Edge.Voice = "ja-JP-NanamiNeural"
	}
	if cfg.Tencent.Region == "" {
		cfg.Tencent.Region = "ap-tokyo"
	}
	if cfg.Proxy.Port == 0 {
		cfg.Proxy.Port = 3001
	}
	if len(cfg.Proxy.AllowedOrigins) == 0 {
		cfg.Proxy.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:4173"}
	}
	if cfg.Proxy.FrontendURL != "" && !contains(cfg.Proxy.AllowedOrigins, cfg.Proxy.FrontendURL) {
		cfg.Proxy.AllowedOrigins = append(cfg.Proxy.AllowedOrigins, cfg.Proxy.FrontendURL)
	}
	if cfg.Proxy.BodyLimit == 0 {
		cfg.Proxy.BodyLimit = 1 << 20
	}
	if cfg.Store.VoiceTTLHours == 0 {
		cfg.Store.VoiceTTLHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	cfg.Store.Path = expandHome(cfg.Store.Path)
	if cfg.Store.Path == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Store.Path = filepath.Join(home, ".speakit", "speakit.db")
		} else {
			cfg.Store.Path = "./.speakit-data/speakit.db"
		}
	}
	cfg.Log.File = expandHome(cfg.Log.File)

	// 环境变量展开后常带空白
	cfg.Google.APIKey = strings.TrimSpace(cfg.Google.APIKey)
	cfg.Google.ProxyURL = strings.TrimRight(strings.TrimSpace(cfg.Google.ProxyURL), "/")
	cfg.Google.APIURL = strings.TrimRight(cfg.Google.APIURL, "/")
}

// expandHome 把 ~/ 开头的路径替换为用户主目录，Go 不会自动展开。
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
