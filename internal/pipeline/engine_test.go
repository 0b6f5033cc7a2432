package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunGuard_CommitSkipsStaleRun(t *testing.T) {
	var g runGuard
	_, gen := g.begin(context.Background())
	g.stop()

	called := false
	live, err := g.commit(gen, func() error {
		called = true
		return nil
	})
	if live || err != nil || called {
		t.Errorf("commit after stop = %v, %v (called=%v), want skipped", live, err, called)
	}
}

func TestRunGuard_CommitReturnsError(t *testing.T) {
	var g runGuard
	_, gen := g.begin(context.Background())
	defer g.end(gen)

	boom := errors.New("boom")
	live, err := g.commit(gen, func() error { return boom })
	if !live || !errors.Is(err, boom) {
		t.Errorf("commit = %v, %v, want true, boom", live, err)
	}
}

// stop 在 commit 执行期间必须等待，不能插在检查和 fn 之间。
func TestRunGuard_StopWaitsForCommit(t *testing.T) {
	var g runGuard
	_, gen := g.begin(context.Background())

	stopped := make(chan struct{})
	live, _ := g.commit(gen, func() error {
		go func() {
			g.stop()
			close(stopped)
		}()
		select {
		case <-stopped:
			t.Error("stop completed while commit held the guard")
		case <-time.After(50 * time.Millisecond):
		}
		return nil
	})
	if !live {
		t.Fatal("commit should run for the current generation")
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never completed")
	}
	if g.live(gen) {
		t.Error("generation should be stale after stop")
	}
}
