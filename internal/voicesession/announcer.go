package voicesession

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vcaremind/voice-client/internal/shared"
)

const (
	GateOwnerPrompt = "prompt"

	PromptConnectionLost = "connection_lost"
	PromptReconnected    = "reconnected"
)

// ClipSource resolves a prompt name to raw little-endian PCM at the player's
// sample rate.
type ClipSource interface {
	Clip(name string) ([]byte, error)
}

// ClipPlayer renders a clip if nothing else is playing.
type ClipPlayer interface {
	PlayClip(owner string, pcm []byte) (bool, error)
}

// DirClips loads prompts from <dir>/<name>.pcm.
type DirClips struct {
	Dir string
}

func (d DirClips) Clip(name string) ([]byte, error) {
	if d.Dir == "" || name == "" || strings.ContainsAny(name, `/\`) {
		return nil, shared.ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, name+".pcm"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("read prompt %s: %w", name, err)
	}
	return data, nil
}

// Announcer plays short local prompts in order. A prompt that finds the
// output busy is skipped rather than delayed.
type Announcer struct {
	clips  ClipSource
	player ClipPlayer
	log    *slog.Logger

	mu      sync.Mutex
	queue   []string
	cancel  context.CancelFunc
	playing bool
	gen     uint64
	played  int
	skipped int
	onStart func()
	onEnd   func()
}

func NewAnnouncer(clips ClipSource, player ClipPlayer, log *slog.Logger) *Announcer {
	if log == nil {
		log = slog.Default()
	}
	return &Announcer{
		clips:  clips,
		player: player,
		log:    log.With("component", "announcer"),
	}
}

func (a *Announcer) SetCallbacks(onStart, onEnd func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStart = onStart
	a.onEnd = onEnd
}

func (a *Announcer) Announce(ctx context.Context, name string) {
	a.mu.Lock()
	idle := len(a.queue) == 0 && !a.playing
	a.queue = append(a.queue, name)
	var runCtx context.Context
	var gen uint64
	if idle {
		a.gen++
		gen = a.gen
		runCtx, a.cancel = context.WithCancel(ctx)
		a.playing = true
	}
	a.mu.Unlock()

	if idle {
		go a.processQueue(runCtx, gen)
	}
}

func (a *Announcer) processQueue(ctx context.Context, gen uint64) {
	a.mu.Lock()
	onStart := a.onStart
	a.mu.Unlock()

	if onStart != nil {
		onStart()
	}

	for {
		a.mu.Lock()
		if a.gen != gen {
			onEnd := a.onEnd
			a.mu.Unlock()
			if onEnd != nil {
				onEnd()
			}
			return
		}
		if len(a.queue) == 0 || ctx.Err() != nil {
			a.queue = nil
			a.playing = false
			onEnd := a.onEnd
			a.mu.Unlock()

			if onEnd != nil {
				onEnd()
			}
			return
		}
		name := a.queue[0]
		a.queue = a.queue[1:]
		a.mu.Unlock()

		played := a.play(name)

		a.mu.Lock()
		if played {
			a.played++
		} else {
			a.skipped++
		}
		a.mu.Unlock()
	}
}

func (a *Announcer) play(name string) bool {
	pcm, err := a.clips.Clip(name)
	if err != nil {
		a.log.Warn("prompt unavailable", "prompt", name, "error", err)
		return false
	}
	played, err := a.player.PlayClip(GateOwnerPrompt, pcm)
	if err != nil {
		a.log.Warn("prompt playback failed", "prompt", name, "error", err)
		return false
	}
	if !played {
		a.log.Debug("output busy, skipping prompt", "prompt", name)
	}
	return played
}

// Clear drops queued prompts and retires the running worker; a prompt
// announced afterwards starts a fresh one.
func (a *Announcer) Clear() {
	a.mu.Lock()
	a.queue = nil
	a.playing = false
	a.gen++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
}

func (a *Announcer) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing || len(a.queue) > 0
}

// Counts returns how many prompts were played and skipped so far.
func (a *Announcer) Counts() (played, skipped int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.played, a.skipped
}
