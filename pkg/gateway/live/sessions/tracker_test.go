package sessions

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTracker_RegisterUnregister_CountAndWait(t *testing.T) {
	tr := NewTracker()
	if tr.Count() != 0 {
		t.Fatalf("initial count=%d, want 0", tr.Count())
	}

	u1 := tr.Register("c1", Handle{})
	u2 := tr.Register("c2", Handle{})
	if tr.Count() != 2 {
		t.Fatalf("count=%d, want 2", tr.Count())
	}

	u1()
	u1() // idempotent
	if tr.Count() != 1 {
		t.Fatalf("count=%d, want 1", tr.Count())
	}

	u2()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if ok := tr.Wait(ctx); !ok {
		t.Fatal("expected Wait to drain")
	}
	if tr.Count() != 0 {
		t.Fatalf("count=%d, want 0", tr.Count())
	}
}

func TestTracker_ReregisterReplacesEntry(t *testing.T) {
	tr := NewTracker()
	var old atomic.Int64
	tr.Register("c1", Handle{Cancel: func() { old.Add(1) }})
	tr.Register("c1", Handle{})

	if tr.Count() != 1 {
		t.Fatalf("count=%d, want 1", tr.Count())
	}
	if n := tr.CancelAll(); n != 0 {
		t.Fatalf("canceled=%d, want 0", n)
	}
	if old.Load() != 0 {
		t.Fatal("stale entry canceled")
	}
}

func TestTracker_CancelAll(t *testing.T) {
	tr := NewTracker()
	var c1, c2 atomic.Int64
	tr.Register("c1", Handle{Cancel: func() { c1.Add(1) }})
	tr.Register("c2", Handle{Cancel: func() { c2.Add(1) }})

	if n := tr.CancelAll(); n != 2 {
		t.Fatalf("canceled=%d, want 2", n)
	}
	if c1.Load() != 1 || c2.Load() != 1 {
		t.Fatalf("cancel calls=%d/%d, want 1/1", c1.Load(), c2.Load())
	}
}

func TestTracker_WaitTimesOut(t *testing.T) {
	tr := NewTracker()
	tr.Register("c1", Handle{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if ok := tr.Wait(ctx); ok {
		t.Fatal("Wait should time out with a live call")
	}
}
