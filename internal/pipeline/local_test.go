package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/iabetor/speakit/internal/playback"
)

func TestLocalEngine_PlaysConcatenatedChunks(t *testing.T) {
	synth := &fakeSynth{rate: 16000}
	out := &fakeOutput{}
	e := NewLocalEngine("edge", synth, 8, out, 1.0, nil)

	if err := e.Play(context.Background(), Request{Text: "aaaa. bbbb. cccc."}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if len(synth.texts) != 3 {
		t.Fatalf("expected 3 sequential syntheses, got %v", synth.texts)
	}
	if synth.texts[0] != "aaaa." || synth.texts[2] != "cccc." {
		t.Errorf("chunks out of order: %v", synth.texts)
	}
	if s := out.last(); s == nil || s.sampleRate != 16000 {
		t.Errorf("output should open at the synthesizer's sample rate")
	}
	if e.State() != playback.StatePlaying {
		t.Errorf("state = %s, want Playing", e.State())
	}
}

func TestLocalEngine_NormalizesText(t *testing.T) {
	synth := &fakeSynth{rate: 24000}
	e := NewLocalEngine("edge", synth, 0, &fakeOutput{}, 1.0, nil)

	if err := e.Play(context.Background(), Request{Text: "**太字**のテキスト"}); err != nil {
		t.Fatal(err)
	}
	if synth.texts[0] != "太字のテキスト" {
		t.Errorf("text = %q", synth.texts[0])
	}
}

func TestLocalEngine_EmptyAndExport(t *testing.T) {
	synth := &fakeSynth{rate: 24000}
	e := NewLocalEngine("say", synth, 0, &fakeOutput{}, 1.0, nil)

	if err := e.Play(context.Background(), Request{Text: "  "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
	if len(synth.texts) != 0 {
		t.Error("empty text must not be synthesized")
	}
	if _, err := e.Export(context.Background(), Request{Text: "テスト"}); !errors.Is(err, ErrExportUnsupported) {
		t.Errorf("Export error = %v, want ErrExportUnsupported", err)
	}
}

func TestLocalEngine_CancelledContext(t *testing.T) {
	synth := &fakeSynth{rate: 24000}
	out := &fakeOutput{}
	e := NewLocalEngine("edge", synth, 0, out, 1.0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Play(ctx, Request{Text: "テスト"}); err != nil {
		t.Errorf("cancellation should be silent, got %v", err)
	}
	if out.opened() != 0 {
		t.Error("no playback expected after cancellation")
	}
}
