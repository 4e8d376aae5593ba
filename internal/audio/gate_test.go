package audio

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGate_TryAcquireSkipsWhenBusy(t *testing.T) {
	gate := NewGate()
	if !gate.TryAcquire("tts") {
		t.Fatal("first TryAcquire should succeed")
	}
	if !gate.IsPlaying() {
		t.Error("gate should report playing while held")
	}
	if gate.Owner() != "tts" {
		t.Errorf("expected owner tts, got %s", gate.Owner())
	}
	if gate.TryAcquire(GateOwnerStream) {
		t.Error("second TryAcquire should fail while held")
	}
	if !gate.Release("tts") {
		t.Error("owner release should succeed")
	}
	if gate.IsPlaying() {
		t.Error("gate should be idle after release")
	}
}

func TestGate_ReleaseWrongOwner(t *testing.T) {
	gate := NewGate()
	gate.TryAcquire("tts")
	if gate.Release(GateOwnerStream) {
		t.Error("release by non-owner should be ignored")
	}
	if !gate.IsPlaying() {
		t.Error("gate should still be held")
	}
}

func TestGate_EmptyOwnerNormalised(t *testing.T) {
	gate := NewGate()
	gate.TryAcquire("")
	if !gate.IsPlaying() {
		t.Error("anonymous holder should still mark the gate playing")
	}
	if !gate.Release("") {
		t.Error("anonymous release should succeed")
	}
}

func TestGate_AcquireBlocksUntilRelease(t *testing.T) {
	gate := NewGate()
	gate.TryAcquire("tts")

	acquired := make(chan struct{})
	go func() {
		if err := gate.Acquire(context.Background(), GateOwnerStream); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire should block while gate is held")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Release("tts")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire should proceed after release")
	}
	if gate.Owner() != GateOwnerStream {
		t.Errorf("expected owner %s, got %s", GateOwnerStream, gate.Owner())
	}
}

func TestGate_AcquireHonoursContext(t *testing.T) {
	gate := NewGate()
	gate.TryAcquire("tts")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := gate.Acquire(ctx, GateOwnerStream); err == nil {
		t.Error("expected context error")
	}
	if gate.Owner() != "tts" {
		t.Error("failed acquire must not change owner")
	}
}

func TestGate_ConcurrentTryAcquire(t *testing.T) {
	gate := NewGate()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.TryAcquire("tts") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}
