package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vcaremind/voice-client/internal/shared"
)

type CaptureDevice interface {
	Open(sampleRate int) error
	Read(buf []int16) (int, error)
	Close() error
}

type PlaybackDevice interface {
	Open(sampleRate int) error
	Write(pcm []byte) error
	Close() error
}

// ReaderDevice captures raw little-endian PCM16 from an io.Reader. With
// Realtime set, each read is paced to the wall-clock duration of the samples.
type ReaderDevice struct {
	r        io.Reader
	Realtime bool

	mu         sync.Mutex
	sampleRate int
	open       bool
	scratch    []byte
}

func NewReaderDevice(r io.Reader, realtime bool) *ReaderDevice {
	return &ReaderDevice{r: r, Realtime: realtime}
}

func (d *ReaderDevice) Open(sampleRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return shared.ErrDeviceUnavailable
	}
	if sampleRate <= 0 {
		return fmt.Errorf("open capture: invalid sample rate %d", sampleRate)
	}
	d.sampleRate = sampleRate
	d.open = true
	return nil
}

func (d *ReaderDevice) Read(buf []int16) (int, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return 0, shared.ErrDeviceUnavailable
	}
	if cap(d.scratch) < len(buf)*2 {
		d.scratch = make([]byte, len(buf)*2)
	}
	scratch := d.scratch[:len(buf)*2]
	rate := d.sampleRate
	d.mu.Unlock()

	start := time.Now()
	n, err := io.ReadFull(d.r, scratch)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(scratch[i*2:]))
	}

	if d.Realtime && samples > 0 {
		want := time.Duration(samples) * time.Second / time.Duration(rate)
		if elapsed := time.Since(start); elapsed < want {
			time.Sleep(want - elapsed)
		}
	}

	if samples == 0 && err == nil {
		err = io.EOF
	}
	return samples, err
}

func (d *ReaderDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// WriterDevice renders PCM16 to an io.Writer, optionally paced to real time.
type WriterDevice struct {
	w        io.Writer
	Realtime bool

	mu         sync.Mutex
	sampleRate int
	open       bool
}

func NewWriterDevice(w io.Writer, realtime bool) *WriterDevice {
	return &WriterDevice{w: w, Realtime: realtime}
}

func (d *WriterDevice) Open(sampleRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w == nil {
		return shared.ErrDeviceUnavailable
	}
	if sampleRate <= 0 {
		return fmt.Errorf("open playback: invalid sample rate %d", sampleRate)
	}
	d.sampleRate = sampleRate
	d.open = true
	return nil
}

func (d *WriterDevice) Write(pcm []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return shared.ErrDeviceUnavailable
	}

	start := time.Now()
	if _, err := d.w.Write(pcm); err != nil {
		return fmt.Errorf("write playback: %w", err)
	}
	if d.Realtime {
		want := time.Duration(len(pcm)/2) * time.Second / time.Duration(d.sampleRate)
		if elapsed := time.Since(start); elapsed < want {
			time.Sleep(want - elapsed)
		}
	}
	return nil
}

func (d *WriterDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	if c, ok := d.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type DiscardDevice struct{}

func (DiscardDevice) Open(int) error { return nil }

func (DiscardDevice) Write([]byte) error { return nil }

func (DiscardDevice) Close() error { return nil }
