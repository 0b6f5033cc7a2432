package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProxySynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/synthesize" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body ProxySynthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Text != "テスト" || body.VoiceName != "ja-JP-Wavenet-A" || body.SpeakingRate != 0.75 {
			t.Errorf("unexpected body: %+v", body)
		}
		fmt.Fprint(w, `{"audioContent":"UklGRg=="}`)
	}))
	defer server.Close()

	c := NewProxyClient(server.URL+"/", 0)
	content, err := c.Synthesize(context.Background(), Request{Text: "テスト", Voice: "ja-JP-Wavenet-A", Rate: 0.75})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if content != "UklGRg==" {
		t.Errorf("content = %q", content)
	}
}

func TestProxySynthesize_ErrorPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Voice name is invalid"}`)
	}))
	defer server.Close()

	c := NewProxyClient(server.URL, 0)
	_, err := c.Synthesize(context.Background(), Request{Text: "a", Voice: "bad"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Voice name is invalid" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestProxyListVoices_FiltersLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/voices" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"voices":[
			{"name":"ja-JP-Neural2-B","ssmlGender":"FEMALE","languageCodes":["ja-JP"]},
			{"name":"en-US-Neural2-A","ssmlGender":"MALE","languageCodes":["en-US"]}
		]}`)
	}))
	defer server.Close()

	voices, err := NewProxyClient(server.URL, 0).ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "ja-JP-Neural2-B" {
		t.Errorf("unexpected voices: %+v", voices)
	}
}
