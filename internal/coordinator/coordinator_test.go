package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

type fakePipeline struct {
	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	listener    *voicesession.Listener
	observers   []voicesession.ConnectionObserver
}

func (p *fakePipeline) Connect() {
	p.mu.Lock()
	p.connects++
	p.connected = true
	p.mu.Unlock()
}

// Disconnect reports the drop to observers, as the session does when its
// socket closes.
func (p *fakePipeline) Disconnect() {
	p.mu.Lock()
	p.disconnects++
	was := p.connected
	p.connected = false
	observers := append([]voicesession.ConnectionObserver(nil), p.observers...)
	p.mu.Unlock()

	if was {
		for _, o := range observers {
			o.ConnectionStateChanged(false)
		}
	}
}

func (p *fakePipeline) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePipeline) SetListener(l *voicesession.Listener) {
	p.mu.Lock()
	p.listener = l
	p.mu.Unlock()
}

func (p *fakePipeline) ClearListener() {
	p.mu.Lock()
	p.listener = nil
	p.mu.Unlock()
}

func (p *fakePipeline) Observe(o voicesession.ConnectionObserver) func() {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.observers = nil
		p.mu.Unlock()
	}
}

func (p *fakePipeline) counts() (connects, disconnects int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connects, p.disconnects
}

func (p *fakePipeline) current() *voicesession.Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listener
}

type fakeService struct {
	mu      sync.Mutex
	resumes int
	pauses  int
	err     error
}

func (s *fakeService) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes++
	return s.err
}

func (s *fakeService) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
	return s.err
}

type stateRecorder struct {
	mu         sync.Mutex
	connection []bool
	chat       []bool
}

func (r *stateRecorder) OnConnectionStateChanged(connected bool) {
	r.mu.Lock()
	r.connection = append(r.connection, connected)
	r.mu.Unlock()
}

func (r *stateRecorder) OnChatAvailabilityChanged(available bool) {
	r.mu.Lock()
	r.chat = append(r.chat, available)
	r.mu.Unlock()
}

func (r *stateRecorder) last() (connection, chat []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.connection...), append([]bool(nil), r.chat...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakePipeline, *fakeService, *clock.Mock) {
	t.Helper()
	pipeline := &fakePipeline{}
	service := &fakeService{}
	clk := clock.NewMock()
	c := New(Config{}, pipeline, service, clk, testLogger())
	t.Cleanup(c.Close)
	return c, pipeline, service, clk
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCoordinator_RegisterChatSurfaceConnects(t *testing.T) {
	c, pipeline, _, _ := newTestCoordinator(t)
	rec := &stateRecorder{}
	c.Subscribe(rec)

	listener := &voicesession.Listener{}
	if err := c.Register(Surface{Name: "main", ChatCapable: true}, listener); err != nil {
		t.Fatal(err)
	}

	if connects, _ := pipeline.counts(); connects != 1 {
		t.Errorf("expected one connect, got %d", connects)
	}
	if pipeline.current() != listener {
		t.Error("listener slot should hold the registered listener")
	}
	if !c.IsChatAvailable() {
		t.Error("chat should be available")
	}
	connection, chat := rec.last()
	if len(chat) != 1 || !chat[0] {
		t.Errorf("expected chat available notification, got %v", chat)
	}
	if len(connection) != 1 || !connection[0] {
		t.Errorf("expected connection notification, got %v", connection)
	}

	c.Register(Surface{Name: "main", ChatCapable: true}, listener)
	if connects, _ := pipeline.counts(); connects != 1 {
		t.Errorf("already connected, expected no new connect, got %d", connects)
	}
}

func TestCoordinator_NonChatSurface(t *testing.T) {
	c, pipeline, _, _ := newTestCoordinator(t)
	rec := &stateRecorder{}
	c.Subscribe(rec)

	c.Register(Surface{Name: "settings"}, nil)
	if connects, _ := pipeline.counts(); connects != 0 {
		t.Errorf("non-chat surface must not connect, got %d", connects)
	}
	if c.IsChatAvailable() {
		t.Error("chat should be unavailable")
	}
	if _, chat := rec.last(); len(chat) != 1 || chat[0] {
		t.Errorf("expected chat unavailable notification, got %v", chat)
	}
}

func TestCoordinator_RegisterValidation(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	if err := c.Register(Surface{}, nil); !errors.Is(err, shared.ErrEmptyPayload) {
		t.Errorf("expected empty payload error, got %v", err)
	}
	if err := c.Unregister("ghost"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := c.Resume("ghost", nil); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCoordinator_ListenerSwap(t *testing.T) {
	c, pipeline, _, _ := newTestCoordinator(t)
	a := &voicesession.Listener{}
	b := &voicesession.Listener{}

	c.Register(Surface{Name: "a", ChatCapable: true}, a)
	c.Register(Surface{Name: "b", ChatCapable: true}, b)
	if pipeline.current() != b {
		t.Fatal("listener slot should hold b")
	}

	c.Unregister("a")
	if pipeline.current() != b {
		t.Error("removing a non-current surface must keep b's listener")
	}
	c.Unregister("b")
	if pipeline.current() != nil {
		t.Error("removing the current surface must clear the slot")
	}
}

func TestCoordinator_BackgroundWithoutServiceDisconnects(t *testing.T) {
	c, pipeline, service, _ := newTestCoordinator(t)
	rec := &stateRecorder{}
	c.Subscribe(rec)

	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	c.Unregister("main")

	if _, disconnects := pipeline.counts(); disconnects != 1 {
		t.Errorf("expected immediate disconnect, got %d", disconnects)
	}
	if service.resumes != 0 {
		t.Error("service must not be resumed when not running")
	}
	connection, _ := rec.last()
	if len(connection) == 0 || connection[len(connection)-1] {
		t.Errorf("expected disconnected notification, got %v", connection)
	}
	if c.IsChatAvailable() {
		t.Error("chat should be unavailable in background")
	}
}

func TestCoordinator_BackgroundGraceWindow(t *testing.T) {
	c, pipeline, service, clk := newTestCoordinator(t)
	c.SetBackgroundServiceRunning(true)

	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	c.Unregister("main")

	if service.resumes != 1 {
		t.Errorf("expected background listener resumed, got %d", service.resumes)
	}
	if _, disconnects := pipeline.counts(); disconnects != 0 {
		t.Fatal("must not disconnect before the grace window elapses")
	}
	if !c.Snapshot().TeardownPending {
		t.Error("expected teardown pending")
	}

	clk.Add(999 * time.Millisecond)
	if _, disconnects := pipeline.counts(); disconnects != 0 {
		t.Fatal("disconnected too early")
	}
	clk.Add(time.Millisecond)
	waitFor(t, func() bool {
		_, disconnects := pipeline.counts()
		return disconnects == 1
	})
}

func TestCoordinator_ReturnDuringGraceKeepsConnection(t *testing.T) {
	c, pipeline, _, clk := newTestCoordinator(t)
	c.SetBackgroundServiceRunning(true)

	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	c.Unregister("main")
	c.Register(Surface{Name: "main", ChatCapable: true}, nil)

	clk.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if _, disconnects := pipeline.counts(); disconnects != 0 {
		t.Errorf("returning surface must cancel the teardown, got %d disconnects", disconnects)
	}
	if !pipeline.IsConnected() {
		t.Error("connection should still be open")
	}
}

func TestCoordinator_Foreground(t *testing.T) {
	c, pipeline, service, clk := newTestCoordinator(t)
	c.SetBackgroundServiceRunning(true)

	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	c.Register(Surface{Name: "other"}, nil)
	c.Resume("main", nil)
	c.Unregister("other")
	c.Unregister("main")

	pipeline.Disconnect()
	c.Foreground()

	if service.pauses != 1 {
		t.Errorf("expected background listener paused, got %d", service.pauses)
	}
	clk.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if !c.BackgroundServiceRunning() {
		t.Error("running flag is owned by the host")
	}
	if _, ok := c.Current(); ok {
		t.Error("no current surface after unregistering everything")
	}
}

func TestCoordinator_ForegroundReconnectsCurrentSurface(t *testing.T) {
	c, pipeline, _, _ := newTestCoordinator(t)
	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	pipeline.Disconnect()

	c.Foreground()
	if connects, _ := pipeline.counts(); connects != 2 {
		t.Errorf("expected reconnect on foreground, got %d connects", connects)
	}
}

func TestCoordinator_Pause(t *testing.T) {
	c, pipeline, _, _ := newTestCoordinator(t)
	rec := &stateRecorder{}
	c.Subscribe(rec)

	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	if err := c.Pause("main"); err != nil {
		t.Fatal(err)
	}
	if c.IsChatAvailable() {
		t.Error("chat should be unavailable while paused")
	}
	if !pipeline.IsConnected() {
		t.Error("pause must not disconnect")
	}
	if _, chat := rec.last(); chat[len(chat)-1] {
		t.Errorf("expected chat unavailable, got %v", chat)
	}

	c.Resume("main", nil)
	if !c.IsChatAvailable() {
		t.Error("chat should be available after resume")
	}
}

func TestCoordinator_ConnectionFanOut(t *testing.T) {
	c, pipeline, _, _ := newTestCoordinator(t)
	a, b := &stateRecorder{}, &stateRecorder{}
	c.Subscribe(a)
	unsubscribe := c.Subscribe(b)
	unsubscribe()

	for _, o := range pipeline.observers {
		o.ConnectionStateChanged(true)
	}

	if conn, _ := a.last(); len(conn) != 1 || !conn[0] {
		t.Errorf("subscriber should see the change, got %v", conn)
	}
	if conn, _ := b.last(); len(conn) != 0 {
		t.Errorf("unsubscribed listener notified: %v", conn)
	}
}

func TestCoordinator_DisconnectReportedOnce(t *testing.T) {
	c, _, _, clk := newTestCoordinator(t)
	rec := &stateRecorder{}
	c.Subscribe(rec)

	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	c.Unregister("main")

	connection, _ := rec.last()
	if len(connection) != 2 || !connection[0] || connection[1] {
		t.Errorf("expected [true false], got %v", connection)
	}

	c.SetBackgroundServiceRunning(true)
	c.Register(Surface{Name: "main", ChatCapable: true}, nil)
	c.Unregister("main")
	clk.Add(DefaultGrace)
	waitFor(t, func() bool {
		connection, _ := rec.last()
		return len(connection) == 4
	})
	time.Sleep(10 * time.Millisecond)
	connection, _ = rec.last()
	want := []bool{true, false, true, false}
	if len(connection) != len(want) {
		t.Fatalf("expected %v, got %v", want, connection)
	}
	for i := range want {
		if connection[i] != want[i] {
			t.Errorf("notification %d: expected %v, got %v", i, want[i], connection[i])
		}
	}
}

func TestCoordinator_Surfaces(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	c.Register(Surface{Name: "b"}, nil)
	c.Register(Surface{Name: "a", ChatCapable: true}, nil)

	surfaces := c.Surfaces()
	if len(surfaces) != 2 || surfaces[0].Name != "a" || surfaces[1].Name != "b" {
		t.Errorf("unexpected surfaces %v", surfaces)
	}
	if cur, ok := c.Current(); !ok || cur.Name != "a" {
		t.Errorf("expected a current, got %v", cur)
	}
}

func TestCoordinator_Close(t *testing.T) {
	pipeline := &fakePipeline{}
	c := New(Config{}, pipeline, nil, clock.NewMock(), testLogger())
	c.Register(Surface{Name: "main", ChatCapable: true}, &voicesession.Listener{})

	c.Close()
	c.Close()
	if pipeline.current() != nil {
		t.Error("close should clear the listener")
	}
	if _, disconnects := pipeline.counts(); disconnects != 1 {
		t.Errorf("expected one disconnect, got %d", disconnects)
	}
	if err := c.Register(Surface{Name: "x"}, nil); !errors.Is(err, shared.ErrClosed) {
		t.Errorf("expected closed error, got %v", err)
	}
}
