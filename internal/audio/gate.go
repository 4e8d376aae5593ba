package audio

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate is the process-wide "something is playing" signal. Only one owner may
// hold it at a time; streamed playback waits for it, local producers probe it.
type Gate struct {
	sem *semaphore.Weighted

	mu    sync.RWMutex
	owner string
}

func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

func (g *Gate) Acquire(ctx context.Context, owner string) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.setOwner(owner)
	return nil
}

func (g *Gate) TryAcquire(owner string) bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.setOwner(owner)
	return true
}

// Release frees the gate if owner currently holds it. A mismatched owner is
// ignored so a stale producer cannot release someone else's slot.
func (g *Gate) Release(owner string) bool {
	owner = ownerName(owner)
	g.mu.Lock()
	if g.owner != owner {
		g.mu.Unlock()
		return false
	}
	g.owner = ""
	g.mu.Unlock()

	g.sem.Release(1)
	return true
}

func (g *Gate) IsPlaying() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner != ""
}

func (g *Gate) Owner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner
}

func (g *Gate) setOwner(owner string) {
	g.mu.Lock()
	g.owner = ownerName(owner)
	g.mu.Unlock()
}

func ownerName(owner string) string {
	if owner == "" {
		return "unknown"
	}
	return owner
}
