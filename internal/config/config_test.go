package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Engine", cfg.Engine, "google"},
		{"Google.APIURL", cfg.Google.APIURL, "https://texttospeech.googleapis.com/v1"},
		{"Google.LanguageCode", cfg.Google.LanguageCode, "ja-JP"},
		{"Google.SpeakingRate", cfg.Google.SpeakingRate, 1.0},
		{"Google.TimeoutSec", cfg.Google.TimeoutSec, 60},
		{"Chunk.MaxBytes", cfg.Chunk.MaxBytes, 4500},
		{"Audio.SampleRate", cfg.Audio.SampleRate, 24000},
		{"Audio.Volume", cfg.Audio.Volume, 1.0},
		{"Proxy.Port", cfg.Proxy.Port, 3001},
		{"Proxy.BodyLimit", cfg.Proxy.BodyLimit, 1 << 20},
		{"Store.VoiceTTLHours", cfg.Store.VoiceTTLHours, 24},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case float64:
			if c.got.(float64) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}

	if len(cfg.Proxy.AllowedOrigins) != 2 {
		t.Errorf("expected 2 default allowed origins, got %v", cfg.Proxy.AllowedOrigins)
	}
	if cfg.Store.Path == "" {
		t.Error("Store.Path should have a default")
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Engine: "edge",
		Google: GoogleConfig{LanguageCode: "en-US", SpeakingRate: 1.5, Voice: "ja-JP-Neural2-B"},
		Chunk:  ChunkConfig{MaxBytes: 1000},
		Audio:  AudioConfig{SampleRate: 48000, Volume: 0.3},
		Log:    LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Engine != "edge" {
		t.Errorf("Engine should not be overridden: got %s", cfg.Engine)
	}
	if cfg.Google.SpeakingRate != 1.5 {
		t.Errorf("SpeakingRate should not be overridden: got %v", cfg.Google.SpeakingRate)
	}
	if cfg.Google.LanguageCode != "en-US" {
		t.Errorf("LanguageCode should not be overridden: got %s", cfg.Google.LanguageCode)
	}
	if cfg.Chunk.MaxBytes != 1000 {
		t.Errorf("MaxBytes should not be overridden: got %d", cfg.Chunk.MaxBytes)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate should not be overridden: got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Volume != 0.3 {
		t.Errorf("Volume should not be overridden: got %v", cfg.Audio.Volume)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestSetDefaults_FrontendURLJoinsAllowList(t *testing.T) {
	cfg := &Config{Proxy: ProxyConfig{FrontendURL: "https://speak.example.com"}}
	setDefaults(cfg)

	if !contains(cfg.Proxy.AllowedOrigins, "https://speak.example.com") {
		t.Errorf("frontend url missing from allow list: %v", cfg.Proxy.AllowedOrigins)
	}

	// 再次调用不应重复追加
	setDefaults(cfg)
	count := 0
	for _, o := range cfg.Proxy.AllowedOrigins {
		if o == "https://speak.example.com" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("frontend url appended %d times", count)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("GOOGLE_TTS_API_KEY", "")
	t.Setenv("SPEAKIT_API_URL", "")
	t.Setenv("FRONTEND_URL", "")

	yamlContent := `
engine: google
google:
  api_key: test-key
  voice: ja-JP-Neural2-B
  speaking_rate: 1.25
chunk:
  max_bytes: 3000
proxy:
  port: 8080
  allowed_origins:
    - http://localhost:3000
log:
  level: debug
`
	tmpFile := filepath.Join(t.TempDir(), "speakit.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Google.APIKey != "test-key" {
		t.Errorf("Google.APIKey: got %q, want %q", cfg.Google.APIKey, "test-key")
	}
	if cfg.Google.Voice != "ja-JP-Neural2-B" {
		t.Errorf("Google.Voice: got %q", cfg.Google.Voice)
	}
	if cfg.Google.SpeakingRate != 1.25 {
		t.Errorf("Google.SpeakingRate: got %v, want 1.25", cfg.Google.SpeakingRate)
	}
	if cfg.Chunk.MaxBytes != 3000 {
		t.Errorf("Chunk.MaxBytes: got %d, want 3000", cfg.Chunk.MaxBytes)
	}
	if cfg.Proxy.Port != 8080 {
		t.Errorf("Proxy.Port: got %d, want 8080", cfg.Proxy.Port)
	}
	if len(cfg.Proxy.AllowedOrigins) != 1 || cfg.Proxy.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Proxy.AllowedOrigins: got %v", cfg.Proxy.AllowedOrigins)
	}
	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("Audio.SampleRate should default to 24000, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_TTS_KEY", "secret-from-env")

	yamlContent := `
google:
  api_key: "${TEST_TTS_KEY}"
`
	tmpFile := filepath.Join(t.TempDir(), "speakit.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Google.APIKey != "secret-from-env" {
		t.Errorf("expected env var expansion, got %q", cfg.Google.APIKey)
	}
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_TTS_API_KEY", "  env-key  ")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Google.APIKey != "env-key" {
		t.Errorf("expected trimmed key from environment, got %q", cfg.Google.APIKey)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/speakit.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestSetDefaults_TrimsProxyURL(t *testing.T) {
	cfg := &Config{Google: GoogleConfig{ProxyURL: " http://localhost:3001/ "}}
	setDefaults(cfg)
	if cfg.Google.ProxyURL != "http://localhost:3001" {
		t.Errorf("expected trimmed proxy url, got %q", cfg.Google.ProxyURL)
	}
}
