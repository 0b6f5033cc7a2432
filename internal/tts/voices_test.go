package tts

import "testing"

func voicesNamed(names ...string) []Voice {
	out := make([]Voice, len(names))
	for i, n := range names {
		out[i] = Voice{Name: n, LanguageCodes: []string{"ja-JP"}}
	}
	return out
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ja-JP-Studio-A", "Studio"},
		{"ja-JP-Neural2-B", "Neural2"},
		{"ja-JP-WaveNet-C", "WaveNet"},
		{"ja-JP-Wavenet-C", "Standard"},
		{"ja-JP-Standard-D", "Standard"},
		{"ja-JP-Chirp3-HD-Aoede", "Standard"},
	}
	for _, tt := range tests {
		if got := TierOf(tt.name); got != tt.want {
			t.Errorf("TierOf(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGroupVoices(t *testing.T) {
	groups := GroupVoices(voicesNamed("ja-JP-Standard-A", "ja-JP-Neural2-B", "ja-JP-Neural2-C", "ja-JP-Standard-D"))
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", groups)
	}
	if groups[0].Tier != "Neural2" || len(groups[0].Voices) != 2 || groups[0].Description != "高品質" {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
	if groups[1].Tier != "Standard" || groups[1].Voices[0].Name != "ja-JP-Standard-A" {
		t.Errorf("unexpected second group: %+v", groups[1])
	}
}

func TestDefaultVoice(t *testing.T) {
	tests := []struct {
		voices []Voice
		want   string
	}{
		{voicesNamed("ja-JP-Standard-A", "ja-JP-WaveNet-B", "ja-JP-Neural2-C"), "ja-JP-Neural2-C"},
		{voicesNamed("ja-JP-Standard-A", "ja-JP-WaveNet-B"), "ja-JP-WaveNet-B"},
		{voicesNamed("ja-JP-Standard-A"), "ja-JP-Standard-A"},
	}
	for _, tt := range tests {
		got, ok := DefaultVoice(tt.voices)
		if !ok || got.Name != tt.want {
			t.Errorf("DefaultVoice = %q, want %q", got.Name, tt.want)
		}
	}
	if _, ok := DefaultVoice(nil); ok {
		t.Error("expected no default for empty list")
	}
}

func TestVoiceLabels(t *testing.T) {
	v := Voice{Name: "ja-JP-Neural2-B", SSMLGender: "FEMALE"}
	if v.ShortName() != "B" || v.GenderLabel() != "女性" {
		t.Errorf("labels = %q %q", v.ShortName(), v.GenderLabel())
	}
	if (Voice{SSMLGender: "MALE"}).GenderLabel() != "男性" {
		t.Error("male label")
	}
}

func TestFilterByLanguage(t *testing.T) {
	voices := []Voice{
		{Name: "a", LanguageCodes: []string{"en-US"}},
		{Name: "b", LanguageCodes: []string{"en-US", "ja-JP"}},
	}
	got := FilterByLanguage(voices, "ja-JP")
	if len(got) != 1 || got[0].Name != "b" {
		t.Errorf("unexpected: %+v", got)
	}
}
