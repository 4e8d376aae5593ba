package handoff

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type ListenerCallbacks struct {
	OnResume func()
	OnPause  func()
}

// Listener is the background side of the handoff: it keeps the presence key
// fresh and applies resume/pause commands from the foreground app.
type Listener struct {
	svc   *Service
	ttl   time.Duration
	clock clock.Clock
	cb    ListenerCallbacks
	log   *slog.Logger

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewListener(svc *Service, ttl time.Duration, clk clock.Clock, cb ListenerCallbacks, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if ttl <= 0 {
		ttl = DefaultAliveTTL
	}
	return &Listener{
		svc:   svc,
		ttl:   ttl,
		clock: clk,
		cb:    cb,
		log:   log.With("component", "handoff_listener"),
	}
}

func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	commands, err := l.svc.Commands(ctx)
	if err != nil {
		cancel()
		return err
	}
	if err := l.svc.MarkAlive(ctx, l.ttl); err != nil {
		cancel()
		return fmt.Errorf("mark listener alive: %w", err)
	}
	l.cancel = cancel

	l.wg.Add(2)
	go l.heartbeat(ctx)
	go l.follow(commands)

	l.log.Info("background listener registered", "ttl", l.ttl)
	return nil
}

func (l *Listener) heartbeat(ctx context.Context) {
	defer l.wg.Done()
	ticker := l.clock.Ticker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.svc.MarkAlive(ctx, l.ttl); err != nil && ctx.Err() == nil {
				l.log.Warn("listener heartbeat failed", "error", err)
			}
		}
	}
}

func (l *Listener) follow(commands <-chan Command) {
	defer l.wg.Done()
	for cmd := range commands {
		l.apply(cmd)
	}
}

func (l *Listener) apply(cmd Command) {
	l.mu.Lock()
	var fn func()
	switch cmd {
	case CommandResume:
		if !l.active {
			l.active = true
			fn = l.cb.OnResume
		}
	case CommandPause:
		if l.active {
			l.active = false
			fn = l.cb.OnPause
		}
	}
	l.mu.Unlock()

	l.log.Debug("listener command", "command", cmd, "applied", fn != nil)
	if fn != nil {
		fn()
	}
}

func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	l.wg.Wait()
	return l.svc.MarkGone(ctx)
}
