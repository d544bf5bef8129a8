package services

import (
	"context"
	"testing"
	"time"
)

func TestJanitorDedupesAndFlushes(t *testing.T) {
	store := newFakeStore()
	store.put("a", 1)
	store.put("b", 1)
	j := NewJanitor(store)

	j.Schedule("a", "a", "b", "")
	if j.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", j.Pending())
	}

	j.Flush()
	if got := store.deletedKeys(); len(got) != 2 {
		t.Fatalf("deleted = %v", got)
	}
	if j.Pending() != 0 {
		t.Fatalf("pending after flush = %d", j.Pending())
	}
}

func TestJanitorRun(t *testing.T) {
	store := newFakeStore()
	j := NewJanitor(store)
	j.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	j.Schedule("x")
	deadline := time.Now().Add(2 * time.Second)
	for len(store.deletedKeys()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := store.deletedKeys(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("deleted = %v", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestJanitorWithoutStore(t *testing.T) {
	j := NewJanitor(nil)
	j.Schedule("a")
	if j.Pending() != 0 {
		t.Fatal("schedule without store should be a no-op")
	}
	j.Flush()
}
