package voicesession

import (
	"sync"
	"time"
)

type TurnState string

const (
	TurnIdle        TurnState = "idle"
	TurnListening   TurnState = "listening"
	TurnSpeaking    TurnState = "speaking"
	TurnInterrupted TurnState = "interrupted"
)

type ActionType string

const (
	ActionFlushPlayback ActionType = "flush_playback"
	ActionEndOfStream   ActionType = "end_of_stream"
)

type Action struct {
	Type   ActionType
	Reason string
}

type BargeInPolicy struct {
	// AllowWhileSpeaking drops queued assistant audio when the user starts
	// talking over it.
	AllowWhileSpeaking bool
}

type TurnTracker struct {
	mu          sync.Mutex
	state       TurnState
	policy      BargeInPolicy
	playing     bool
	lastChange  time.Time
	userTurns   int
	interrupted int
}

func NewTurnTracker(policy BargeInPolicy) *TurnTracker {
	return &TurnTracker{state: TurnIdle, policy: policy}
}

func (t *TurnTracker) setLocked(state TurnState, now time.Time) {
	if t.state != state {
		t.state = state
		t.lastChange = now
	}
}

func (t *TurnTracker) OnPlaybackStart(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = true
	if t.state != TurnListening {
		t.setLocked(TurnSpeaking, now)
	}
}

func (t *TurnTracker) OnPlaybackEnd(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	if t.state == TurnSpeaking || t.state == TurnInterrupted {
		t.setLocked(TurnIdle, now)
	}
}

func (t *TurnTracker) OnUserStart(now time.Time) []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userTurns++

	if t.playing && t.policy.AllowWhileSpeaking {
		t.interrupted++
		t.setLocked(TurnListening, now)
		return []Action{{Type: ActionFlushPlayback, Reason: "barge_in"}}
	}
	t.setLocked(TurnListening, now)
	return nil
}

func (t *TurnTracker) OnUserEnd(now time.Time) []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TurnListening {
		return nil
	}
	if t.playing {
		t.setLocked(TurnSpeaking, now)
	} else {
		t.setLocked(TurnIdle, now)
	}
	return []Action{{Type: ActionEndOfStream, Reason: "user_end"}}
}

func (t *TurnTracker) OnServerInterrupt(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interrupted++
	if t.state == TurnSpeaking {
		t.setLocked(TurnInterrupted, now)
	}
}

func (t *TurnTracker) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

type TurnStats struct {
	State       TurnState `json:"state"`
	Since       time.Time `json:"since"`
	UserTurns   int       `json:"user_turns"`
	Interrupted int       `json:"interrupted"`
}

func (t *TurnTracker) Stats() TurnStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TurnStats{
		State:       t.state,
		Since:       t.lastChange,
		UserTurns:   t.userTurns,
		Interrupted: t.interrupted,
	}
}
