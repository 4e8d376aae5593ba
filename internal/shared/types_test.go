package shared

import (
	"strings"
	"testing"
	"time"
)

func TestBackoffConfig_Delay(t *testing.T) {
	cfg := BackoffConfig{
		Initial:     time.Second,
		MaxAttempts: 8,
		MaxDelay:    30 * time.Second,
	}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}

	for i, w := range want {
		if got := cfg.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoffConfig_Delay_ZeroAttempt(t *testing.T) {
	cfg := BackoffConfig{Initial: 500 * time.Millisecond, MaxDelay: time.Second}
	if got := cfg.Delay(0); got != 500*time.Millisecond {
		t.Errorf("Delay(0) = %v, want 500ms", got)
	}
}

func TestBackoffConfig_Delay_InitialAboveCap(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Minute, MaxDelay: 30 * time.Second}
	if got := cfg.Delay(1); got != 30*time.Second {
		t.Errorf("Delay(1) = %v, want 30s", got)
	}
}

func TestNewID(t *testing.T) {
	id := NewID("req_")
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("expected prefix req_, got %s", id)
	}
	if len(id) != len("req_")+36 {
		t.Errorf("unexpected id length %d", len(id))
	}
	if NewID("req_") == id {
		t.Error("ids should be unique")
	}
}
