package handoff

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultPollInterval = 5 * time.Second

// Monitor polls the presence key and reports transitions, so the foreground
// app knows whether a background listener can take over.
type Monitor struct {
	svc      *Service
	interval time.Duration
	clock    clock.Clock
	report   func(running bool)
	log      *slog.Logger

	mu     sync.Mutex
	known  bool
	alive  bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(svc *Service, interval time.Duration, clk clock.Clock, report func(bool), log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		svc:      svc,
		interval: interval,
		clock:    clk,
		report:   report,
		log:      log.With("component", "handoff_monitor"),
	}
}

func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.Check(ctx)
	go m.run(ctx, done)
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check polls once and reports if the presence changed since the last poll.
func (m *Monitor) Check(ctx context.Context) {
	alive, err := m.svc.Alive(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn("listener presence check failed", "error", err)
		}
		return
	}

	m.mu.Lock()
	changed := !m.known || m.alive != alive
	m.known = true
	m.alive = alive
	m.mu.Unlock()

	if changed && m.report != nil {
		m.report(alive)
	}
}

func (m *Monitor) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
