package playback

import (
	"encoding/binary"
	"testing"
)

func pcmAt(b []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(b[2*i:]))
}

func TestGraph_RenderAndEnd(t *testing.T) {
	ended := 0
	g := NewGraph([]float32{0.5, -0.5, 1}, 1.0, func() { ended++ })

	out := make([]byte, 4)
	g.Render(out, 2)
	if pcmAt(out, 0) != 16383 || pcmAt(out, 1) != -16384 {
		t.Errorf("unexpected samples: %d %d", pcmAt(out, 0), pcmAt(out, 1))
	}

	// 最后一个样本后补静音，但此次仍有数据，不触发结束
	out = []byte{1, 1, 1, 1}
	g.Render(out, 2)
	if pcmAt(out, 0) != 32767 || pcmAt(out, 1) != 0 {
		t.Errorf("unexpected tail: %v", out)
	}
	if ended != 0 {
		t.Fatalf("ended fired too early")
	}

	g.Render(out, 2)
	g.Render(out, 2)
	if ended != 1 {
		t.Errorf("ended fired %d times, want 1", ended)
	}
	if pcmAt(out, 0) != 0 || pcmAt(out, 1) != 0 {
		t.Errorf("expected silence after end, got %v", out)
	}
}

func TestGraph_GainAppliesLive(t *testing.T) {
	g := NewGraph([]float32{0.5, 0.5}, 1.0, nil)
	out := make([]byte, 2)

	g.Gain().Set(0.5)
	g.Render(out, 1)
	if pcmAt(out, 0) != 8191 {
		t.Errorf("sample with gain 0.5 = %d, want 8191", pcmAt(out, 0))
	}

	g.Gain().Set(0)
	g.Render(out, 1)
	if pcmAt(out, 0) != 0 {
		t.Errorf("sample with gain 0 = %d, want 0", pcmAt(out, 0))
	}
}

func TestGain_ClampsNegative(t *testing.T) {
	g := NewGain(-1)
	if g.Level() != 0 {
		t.Errorf("Level = %v, want 0", g.Level())
	}
}

func TestSource_DoesNotModifyInput(t *testing.T) {
	in := []float32{0.25, 0.75}
	g := NewGraph(in, 0.5, nil)
	g.Render(make([]byte, 4), 2)
	if in[0] != 0.25 || in[1] != 0.75 {
		t.Errorf("input modified: %v", in)
	}
}
