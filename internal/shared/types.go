package shared

import (
	"time"

	"github.com/google/uuid"
)

type BackoffConfig struct {
	Initial     time.Duration
	MaxAttempts int
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// Delay returns the pre-jitter wait before the given 1-based attempt.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

func NewID(prefix string) string {
	return prefix + uuid.NewString()
}
