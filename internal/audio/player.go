package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frostbyte73/core"
	"github.com/gammazero/deque"

	"github.com/vcaremind/voice-client/internal/shared"
)

const (
	DefaultPlaybackRate = 24000

	GateOwnerStream = "stream"
)

type PlayerConfig struct {
	// SampleRate is the rate of the PCM the server streams.
	SampleRate int
	// DeviceRate is the rate the output device is opened at; buffers are
	// resampled when it differs from SampleRate.
	DeviceRate int
	Volume     float64
}

func (c PlayerConfig) withDefaults() PlayerConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultPlaybackRate
	}
	if c.DeviceRate <= 0 {
		c.DeviceRate = c.SampleRate
	}
	if c.Volume <= 0 {
		c.Volume = 1
	}
	c.Volume = ClampVolume(c.Volume)
	return c
}

type PlayerCallbacks struct {
	OnPlaybackStarted func()
	OnPlaybackStopped func()
	OnError           func(err error)
}

type Player struct {
	cfg    PlayerConfig
	device PlaybackDevice
	gate   *Gate
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed core.Fuse
	wg     sync.WaitGroup

	mu      sync.Mutex
	queue   deque.Deque[[]byte]
	playing bool
	opened  bool
	volume  float64
	cb      PlayerCallbacks
}

func NewPlayer(cfg PlayerConfig, device PlaybackDevice, gate *Gate, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	if gate == nil {
		gate = NewGate()
	}
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		cfg:    cfg,
		device: device,
		gate:   gate,
		log:    log.With("component", "player"),
		ctx:    ctx,
		cancel: cancel,
		volume: cfg.Volume,
	}
}

func (p *Player) SetCallbacks(cb PlayerCallbacks) {
	p.mu.Lock()
	p.cb = cb
	p.mu.Unlock()
}

func (p *Player) Gate() *Gate {
	return p.gate
}

func (p *Player) Enqueue(b64 string) {
	pcm, err := DecodeChunk(b64)
	if err != nil {
		p.log.Warn("dropping audio chunk", "error", err)
		return
	}

	p.mu.Lock()
	if p.closed.IsBroken() {
		p.mu.Unlock()
		p.log.Debug("player closed, dropping audio chunk")
		return
	}
	p.queue.PushBack(pcm)
	start := !p.playing
	if start {
		p.playing = true
		p.wg.Add(1)
	}
	p.mu.Unlock()

	if start {
		go p.drain()
	}
}

func (p *Player) drain() {
	defer p.wg.Done()

	if err := p.gate.Acquire(p.ctx, GateOwnerStream); err != nil {
		p.abandon()
		return
	}

	if err := p.ensureOpen(); err != nil {
		p.gate.Release(GateOwnerStream)
		p.abandon()
		p.log.Error("failed to open playback device", "error", err)
		if cb := p.callbacks().OnError; cb != nil {
			cb(err)
		}
		return
	}

	if cb := p.callbacks().OnPlaybackStarted; cb != nil {
		cb()
	}

	for {
		p.mu.Lock()
		if p.queue.Len() == 0 || p.closed.IsBroken() {
			p.queue.Clear()
			p.playing = false
			p.mu.Unlock()
			break
		}
		buf := p.queue.PopFront()
		volume := p.volume
		p.mu.Unlock()

		if err := p.device.Write(p.render(buf, volume)); err != nil {
			p.log.Warn("playback write failed, dropping buffer", "error", err, "bytes", len(buf))
		}
	}

	p.gate.Release(GateOwnerStream)
	if cb := p.callbacks().OnPlaybackStopped; cb != nil {
		cb()
	}
}

func (p *Player) abandon() {
	p.mu.Lock()
	p.queue.Clear()
	p.playing = false
	p.mu.Unlock()
}

func (p *Player) ensureOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opened {
		return nil
	}
	if p.device == nil {
		return shared.ErrDeviceUnavailable
	}
	if err := p.device.Open(p.cfg.DeviceRate); err != nil {
		return fmt.Errorf("open playback device: %w", err)
	}
	p.opened = true
	return nil
}

func (p *Player) render(buf []byte, volume float64) []byte {
	if p.cfg.DeviceRate != p.cfg.SampleRate {
		buf = ResamplePCM(buf, p.cfg.SampleRate, p.cfg.DeviceRate)
	}
	ScaleVolume(buf, volume)
	return buf
}

func (p *Player) callbacks() PlayerCallbacks {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cb
}

// PlayClip renders a local clip on the output device if the gate is free.
// It reports false without blocking when something else is playing.
func (p *Player) PlayClip(owner string, pcm []byte) (bool, error) {
	if p.closed.IsBroken() {
		return false, shared.ErrClosed
	}
	if len(pcm) == 0 {
		return false, shared.ErrEmptyPayload
	}
	if !p.gate.TryAcquire(owner) {
		return false, nil
	}
	defer p.gate.Release(owner)

	if err := p.ensureOpen(); err != nil {
		return false, err
	}
	buf := append([]byte(nil), pcm...)
	if err := p.device.Write(p.render(buf, p.Volume())); err != nil {
		return false, fmt.Errorf("write clip: %w", err)
	}
	return true, nil
}

// Flush drops every queued buffer. The buffer being rendered finishes.
func (p *Player) Flush() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.queue.Len()
	p.queue.Clear()
	return n
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = ClampVolume(v)
	p.mu.Unlock()
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) Close() error {
	if p.closed.IsBroken() {
		return nil
	}
	p.mu.Lock()
	p.closed.Break()
	p.queue.Clear()
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	opened := p.opened
	p.opened = false
	p.mu.Unlock()

	if opened {
		return p.device.Close()
	}
	return nil
}
