package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultCaptureRate  = 16000
	DefaultChunkSamples = 512
	DefaultPausePoll    = 100 * time.Millisecond
	DefaultStopTimeout  = 2 * time.Second
)

type RecorderConfig struct {
	SampleRate   int
	ChunkSamples int
	// HalfDuplex idles capture while the gate reports playback, so the
	// assistant does not hear itself.
	HalfDuplex bool
	PausePoll  time.Duration
	// StopTimeout bounds how long StopInput waits for the capture loop, and
	// how long StartInput waits for an abandoned loop to exit.
	StopTimeout time.Duration
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultCaptureRate
	}
	if c.ChunkSamples <= 0 {
		c.ChunkSamples = DefaultChunkSamples
	}
	if c.PausePoll <= 0 {
		c.PausePoll = DefaultPausePoll
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	return c
}

type RecorderCallbacks struct {
	OnRecordingStarted func()
	OnRecordingStopped func()
	OnChunkReady       func(b64 string)
}

type captureRun struct {
	stop chan struct{}
	done chan struct{}
	// abandoned is set when StopInput gave up waiting; the loop may still
	// be inside Read and must not emit anything after that.
	abandoned atomic.Bool
}

type Recorder struct {
	cfg    RecorderConfig
	device CaptureDevice
	gate   *Gate
	clock  clock.Clock
	log    *slog.Logger

	recording atomic.Bool
	lifecycle sync.Mutex
	run       *captureRun
	previous  *captureRun
	emitMu    sync.Mutex

	cbMu sync.RWMutex
	cb   RecorderCallbacks
}

func NewRecorder(cfg RecorderConfig, device CaptureDevice, gate *Gate, clk clock.Clock, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Recorder{
		cfg:    cfg.withDefaults(),
		device: device,
		gate:   gate,
		clock:  clk,
		log:    log.With("component", "recorder"),
	}
}

func (r *Recorder) SetCallbacks(cb RecorderCallbacks) {
	r.cbMu.Lock()
	r.cb = cb
	r.cbMu.Unlock()
}

func (r *Recorder) callbacks() RecorderCallbacks {
	r.cbMu.RLock()
	defer r.cbMu.RUnlock()
	return r.cb
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) StartInput() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if !r.recording.CompareAndSwap(false, true) {
		return nil
	}

	if r.device == nil {
		r.recording.Store(false)
		r.log.Error("no capture device configured")
		return fmt.Errorf("start input: no capture device")
	}

	if prev := r.previous; prev != nil {
		select {
		case <-prev.done:
			r.previous = nil
		case <-time.After(r.cfg.StopTimeout):
			r.recording.Store(false)
			r.log.Error("previous capture loop still running")
			return fmt.Errorf("start input: previous capture still running")
		}
	}

	if err := r.device.Open(r.cfg.SampleRate); err != nil {
		r.recording.Store(false)
		r.log.Error("failed to open capture device", "error", err)
		return fmt.Errorf("start input: %w", err)
	}

	run := &captureRun{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	r.run = run
	go r.captureLoop(run)

	r.log.Info("recording started", "sample_rate", r.cfg.SampleRate, "chunk_samples", r.cfg.ChunkSamples)
	if cb := r.callbacks().OnRecordingStarted; cb != nil {
		cb()
	}
	return nil
}

func (r *Recorder) StopInput() {
	r.stopRun(nil)
}

// stopRun stops the given run, or whichever run is current when nil.
func (r *Recorder) stopRun(target *captureRun) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	run := r.run
	if run == nil || (target != nil && target != run) {
		return
	}
	if !r.recording.CompareAndSwap(true, false) {
		return
	}
	r.run = nil

	close(run.stop)
	select {
	case <-run.done:
	case <-time.After(r.cfg.StopTimeout):
		r.emitMu.Lock()
		run.abandoned.Store(true)
		r.emitMu.Unlock()
		r.previous = run
		r.log.Warn("capture loop did not exit in time, closing device")
	}

	if err := r.device.Close(); err != nil {
		r.log.Warn("failed to close capture device", "error", err)
	}

	r.log.Info("recording stopped")
	if cb := r.callbacks().OnRecordingStopped; cb != nil {
		cb()
	}
}

func (r *Recorder) captureLoop(run *captureRun) {
	defer close(run.done)

	buf := make([]int16, r.cfg.ChunkSamples)
	pending := make([]int16, 0, r.cfg.ChunkSamples*2)

	for {
		select {
		case <-run.stop:
			r.emit(run, pending)
			return
		default:
		}

		if r.cfg.HalfDuplex && r.gate != nil && r.gate.IsPlaying() {
			r.wait(run, r.cfg.PausePoll)
			continue
		}

		n, err := r.device.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			if len(pending) >= r.cfg.ChunkSamples {
				r.emit(run, pending)
				pending = pending[:0]
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				r.log.Info("capture input ended")
				r.emit(run, pending)
				go r.stopRun(run)
				return
			}
			r.log.Warn("capture read failed", "error", err)
			r.wait(run, r.cfg.PausePoll)
		}
	}
}

func (r *Recorder) wait(run *captureRun, d time.Duration) {
	select {
	case <-run.stop:
	case <-r.clock.After(d):
	}
}

func (r *Recorder) emit(run *captureRun, samples []int16) {
	if len(samples) == 0 {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if run.abandoned.Load() {
		return
	}
	chunk := EncodeChunk(samples)
	if cb := r.callbacks().OnChunkReady; cb != nil {
		cb(chunk)
	}
}
