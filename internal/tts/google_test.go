package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
)

func newTestGoogleClient(t *testing.T, url string) *GoogleClient {
	t.Helper()
	c, err := NewGoogleClient(GoogleConfig{APIURL: url + "/", APIKey: " test-key "})
	if err != nil {
		t.Fatalf("NewGoogleClient failed: %v", err)
	}
	return c
}

func TestNewGoogleClient_RequiresKey(t *testing.T) {
	if _, err := NewGoogleClient(GoogleConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGoogleSynthesize_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/text:synthesize" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("unexpected key: %q", got)
		}

		var body SynthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Input.Text != "こんにちは" || body.Input.SSML != "" {
			t.Errorf("unexpected input: %+v", body.Input)
		}
		if body.Voice.LanguageCode != "ja-JP" || body.Voice.Name != "ja-JP-Neural2-B" {
			t.Errorf("unexpected voice: %+v", body.Voice)
		}
		if body.AudioConfig.AudioEncoding != "LINEAR16" || body.AudioConfig.SampleRateHertz != 24000 {
			t.Errorf("unexpected audio config: %+v", body.AudioConfig)
		}
		if body.AudioConfig.SpeakingRate != 1.0 {
			t.Errorf("speaking rate should default to 1.0, got %v", body.AudioConfig.SpeakingRate)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"audioContent":"AAAA"}`)
	}))
	defer server.Close()

	c := newTestGoogleClient(t, server.URL)
	content, err := c.Synthesize(context.Background(), Request{Text: "こんにちは", Voice: "ja-JP-Neural2-B"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if content != "AAAA" {
		t.Errorf("content = %q, want AAAA", content)
	}
}

func TestGoogleSynthesize_SSMLWins(t *testing.T) {
	c := &GoogleClient{languageCode: "ja-JP"}
	req := c.BuildRequest(Request{Text: "plain", SSML: "<speak>markup</speak>", Voice: "v", Rate: 1.25})
	if req.Input.Text != "" || req.Input.SSML != "<speak>markup</speak>" {
		t.Errorf("ssml should take priority: %+v", req.Input)
	}
	if req.AudioConfig.SpeakingRate != 1.25 {
		t.Errorf("speaking rate = %v", req.AudioConfig.SpeakingRate)
	}

	data, err := sonic.Marshal(req.Input)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"ssml":"<speak>markup</speak>"}` {
		t.Errorf("input json = %s", data)
	}
}

func TestGoogleSynthesize_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid. Please pass a valid API key.","status":"PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	c := newTestGoogleClient(t, server.URL)
	_, err := c.Synthesize(context.Background(), Request{Text: "a", Voice: "v"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 403 {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
	if err.Error() != "API key not valid. Please pass a valid API key." {
		t.Errorf("message not verbatim: %q", err.Error())
	}
}

func TestGoogleSynthesize_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "bad gateway")
	}))
	defer server.Close()

	c := newTestGoogleClient(t, server.URL)
	_, err := c.Synthesize(context.Background(), Request{Text: "a", Voice: "v"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "bad gateway" {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestGoogleSynthesize_MissingInput(t *testing.T) {
	c := &GoogleClient{}
	for _, req := range []Request{{Voice: "v"}, {Text: "a"}} {
		if _, err := c.Synthesize(context.Background(), req); !errors.Is(err, ErrMissingInput) {
			t.Errorf("Synthesize(%+v) error = %v, want ErrMissingInput", req, err)
		}
	}
}

func TestGoogleListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("languageCode"); got != "ja-JP" {
			t.Errorf("languageCode = %q", got)
		}
		fmt.Fprint(w, `{"voices":[
			{"name":"ja-JP-Neural2-B","ssmlGender":"FEMALE","languageCodes":["ja-JP"],"naturalSampleRateHertz":24000},
			{"name":"ja-JP-Standard-C","ssmlGender":"MALE","languageCodes":["ja-JP"]}
		]}`)
	}))
	defer server.Close()

	c := newTestGoogleClient(t, server.URL)
	voices, err := c.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	if len(voices) != 2 || voices[0].Name != "ja-JP-Neural2-B" || voices[0].SSMLGender != "FEMALE" {
		t.Errorf("unexpected voices: %+v", voices)
	}
}
