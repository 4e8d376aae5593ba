package audio

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakePlayback struct {
	mu       sync.Mutex
	opens    int
	writes   [][]byte
	release  chan struct{}
	writeErr error
	// inWrite counts concurrent writers to catch overlapping renders.
	inWrite atomic.Int32
	overlap atomic.Bool
	onWrite func()
}

func (f *fakePlayback) Open(int) error {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return nil
}

func (f *fakePlayback) Write(pcm []byte) error {
	if f.inWrite.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inWrite.Add(-1)

	if f.onWrite != nil {
		f.onWrite()
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), pcm...))
	f.mu.Unlock()
	return f.writeErr
}

func (f *fakePlayback) Close() error { return nil }

func (f *fakePlayback) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func TestPlayer_PlaysInOrder(t *testing.T) {
	dev := &fakePlayback{release: make(chan struct{})}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	inputs := [][]int16{{1}, {2, 3}, {4}}
	for _, in := range inputs {
		player.Enqueue(EncodeChunk(in))
	}

	for range inputs {
		dev.release <- struct{}{}
	}
	waitFor(t, func() bool { return !player.IsPlaying() })

	writes := dev.written()
	if len(writes) != len(inputs) {
		t.Fatalf("expected %d writes, got %d", len(inputs), len(writes))
	}
	for i, in := range inputs {
		if !bytes.Equal(writes[i], Int16ToPCMBytes(in)) {
			t.Errorf("write %d out of order: %v", i, writes[i])
		}
	}
	if dev.overlap.Load() {
		t.Error("renders overlapped")
	}
}

func TestPlayer_PlayingFlagDuringRender(t *testing.T) {
	dev := &fakePlayback{release: make(chan struct{})}
	var sawIdle atomic.Bool
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()
	dev.onWrite = func() {
		if !player.IsPlaying() {
			sawIdle.Store(true)
		}
	}

	player.Enqueue("AAA=")
	if !player.IsPlaying() {
		t.Error("playing should be set as soon as audio is queued")
	}
	player.Enqueue("AAE=")
	dev.release <- struct{}{}
	dev.release <- struct{}{}

	waitFor(t, func() bool { return !player.IsPlaying() })
	if sawIdle.Load() {
		t.Error("playing flag was false during a render")
	}
	if player.QueueLen() != 0 {
		t.Error("queue should be empty once idle")
	}
}

func TestPlayer_LateArrivalNotStranded(t *testing.T) {
	dev := &fakePlayback{}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	for i := 0; i < 50; i++ {
		player.Enqueue("AAA=")
		if i%7 == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	waitFor(t, func() bool { return !player.IsPlaying() && len(dev.written()) == 50 })
}

func TestPlayer_InvalidInputIgnored(t *testing.T) {
	dev := &fakePlayback{}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	player.Enqueue("")
	player.Enqueue("not base64!!")
	if player.IsPlaying() || player.QueueLen() != 0 {
		t.Error("invalid input must not start playback")
	}
}

func TestPlayer_CallbacksAndGate(t *testing.T) {
	dev := &fakePlayback{release: make(chan struct{})}
	gate := NewGate()
	player := NewPlayer(PlayerConfig{}, dev, gate, nil)
	defer player.Close()

	var started, stopped atomic.Int32
	player.SetCallbacks(PlayerCallbacks{
		OnPlaybackStarted: func() { started.Add(1) },
		OnPlaybackStopped: func() { stopped.Add(1) },
	})

	player.Enqueue("AAA=")
	waitFor(t, func() bool { return gate.Owner() == GateOwnerStream })
	if gate.TryAcquire("tts") {
		t.Error("local producer should be skipped while streaming")
	}
	dev.release <- struct{}{}

	waitFor(t, func() bool { return stopped.Load() == 1 })
	if started.Load() != 1 {
		t.Errorf("expected one started event, got %d", started.Load())
	}
	if gate.IsPlaying() {
		t.Error("gate should be released after draining")
	}
}

func TestPlayer_WaitsForGate(t *testing.T) {
	dev := &fakePlayback{}
	gate := NewGate()
	gate.TryAcquire("tts")
	player := NewPlayer(PlayerConfig{}, dev, gate, nil)
	defer player.Close()

	player.Enqueue("AAA=")
	time.Sleep(30 * time.Millisecond)
	if len(dev.written()) != 0 {
		t.Error("stream playback must wait for the local producer")
	}
	gate.Release("tts")
	waitFor(t, func() bool { return len(dev.written()) == 1 })
}

func TestPlayer_Flush(t *testing.T) {
	dev := &fakePlayback{release: make(chan struct{})}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	player.Enqueue("AAA=")
	player.Enqueue("AAE=")
	player.Enqueue("AAI=")
	waitFor(t, func() bool { return player.QueueLen() == 2 })

	if n := player.Flush(); n != 2 {
		t.Errorf("expected 2 flushed buffers, got %d", n)
	}
	dev.release <- struct{}{}
	waitFor(t, func() bool { return !player.IsPlaying() })
	if len(dev.written()) != 1 {
		t.Errorf("only the in-flight buffer should render, got %d", len(dev.written()))
	}
}

func TestPlayer_WriteErrorContinues(t *testing.T) {
	dev := &fakePlayback{writeErr: errors.New("underrun")}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	player.Enqueue("AAA=")
	player.Enqueue("AAE=")
	waitFor(t, func() bool { return !player.IsPlaying() })
	if len(dev.written()) != 2 {
		t.Errorf("expected both buffers attempted, got %d", len(dev.written()))
	}
}

func TestPlayer_Volume(t *testing.T) {
	dev := &fakePlayback{}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	if player.Volume() != 1 {
		t.Errorf("default volume should be 1, got %v", player.Volume())
	}
	player.SetVolume(3)
	if player.Volume() != 1 {
		t.Errorf("volume should clamp to 1, got %v", player.Volume())
	}
	player.SetVolume(0.5)
	player.Enqueue(EncodeChunk([]int16{1000}))
	waitFor(t, func() bool { return len(dev.written()) == 1 })
	if got := PCMBytesToInt16(dev.written()[0])[0]; got != 500 {
		t.Errorf("expected scaled sample 500, got %d", got)
	}
}

func TestPlayer_ResamplesToDeviceRate(t *testing.T) {
	dev := &fakePlayback{}
	player := NewPlayer(PlayerConfig{SampleRate: 8000, DeviceRate: 16000}, dev, nil, nil)
	defer player.Close()

	player.Enqueue(EncodeChunk([]int16{0, 1000}))
	waitFor(t, func() bool { return len(dev.written()) == 1 })
	if n := len(dev.written()[0]) / 2; n != 4 {
		t.Errorf("expected 4 resampled samples, got %d", n)
	}
}

func TestPlayer_CloseDropsLateAudio(t *testing.T) {
	dev := &fakePlayback{}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	if err := player.Close(); err != nil {
		t.Fatal(err)
	}
	player.Enqueue("AAA=")
	if player.IsPlaying() {
		t.Error("closed player must not start playback")
	}
	if err := player.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestPlayer_PlayClip(t *testing.T) {
	dev := &fakePlayback{}
	player := NewPlayer(PlayerConfig{}, dev, nil, nil)
	defer player.Close()

	played, err := player.PlayClip("prompt", Int16ToPCMBytes([]int16{7}))
	if err != nil || !played {
		t.Fatalf("expected clip played, got %v %v", played, err)
	}
	if player.Gate().IsPlaying() {
		t.Error("gate should be released after the clip")
	}
	if writes := dev.written(); len(writes) != 1 || !bytes.Equal(writes[0], Int16ToPCMBytes([]int16{7})) {
		t.Errorf("unexpected writes %v", writes)
	}
}

func TestPlayer_PlayClipSkipsWhenBusy(t *testing.T) {
	dev := &fakePlayback{}
	gate := NewGate()
	player := NewPlayer(PlayerConfig{}, dev, gate, nil)
	defer player.Close()

	gate.TryAcquire("other")
	played, err := player.PlayClip("prompt", Int16ToPCMBytes([]int16{7}))
	if err != nil || played {
		t.Errorf("expected skip while busy, got %v %v", played, err)
	}
	if len(dev.written()) != 0 {
		t.Error("nothing should be written while the gate is held")
	}
	if _, err := player.PlayClip("prompt", nil); err == nil {
		t.Error("expected error for empty clip")
	}
}
