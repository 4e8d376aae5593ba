package coordinator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/frostbyte73/core"
	"github.com/google/uuid"

	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

const DefaultGrace = time.Second

// Surface is a UI context the host reports visibility for.
type Surface struct {
	Name        string `json:"name"`
	ChatCapable bool   `json:"chat_capable"`
}

type StateListener interface {
	OnConnectionStateChanged(connected bool)
	OnChatAvailabilityChanged(available bool)
}

// Pipeline is the part of the voice session the coordinator drives.
type Pipeline interface {
	Connect()
	Disconnect()
	IsConnected() bool
	SetListener(l *voicesession.Listener)
	ClearListener()
	Observe(o voicesession.ConnectionObserver) func()
}

// BackgroundService is the out-of-process listener that takes over the
// microphone while no surface is visible.
type BackgroundService interface {
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
}

type Config struct {
	Grace time.Duration
}

type Coordinator struct {
	pipeline Pipeline
	service  BackgroundService
	clock    clock.Clock
	grace    time.Duration
	log      *slog.Logger

	mu             sync.Mutex
	surfaces       map[string]Surface
	current        string
	background     bool
	paused         bool
	serviceRunning bool
	teardown       *clock.Timer
	teardownSeq    uint64
	subscribers    map[string]StateListener
	connReported   bool
	connKnown      bool

	unobserve func()
	closed    core.Fuse
}

func New(cfg Config, pipeline Pipeline, service BackgroundService, clk clock.Clock, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	c := &Coordinator{
		pipeline:    pipeline,
		service:     service,
		clock:       clk,
		grace:       cfg.Grace,
		log:         log.With("component", "coordinator"),
		surfaces:    make(map[string]Surface),
		subscribers: make(map[string]StateListener),
	}
	c.unobserve = pipeline.Observe(c)
	return c
}

// Register marks the surface visible and current and hands it the listener
// slot. The previous surface's listener stops receiving events before
// Register returns.
func (c *Coordinator) Register(surface Surface, listener *voicesession.Listener) error {
	if surface.Name == "" {
		return shared.ErrEmptyPayload
	}
	if c.closed.IsBroken() {
		return shared.ErrClosed
	}

	c.mu.Lock()
	c.surfaces[surface.Name] = surface
	c.current = surface.Name
	c.background = false
	c.paused = false
	c.cancelTeardownLocked()
	c.mu.Unlock()

	c.log.Debug("surface registered", "surface", surface.Name, "chat_capable", surface.ChatCapable)
	c.swapListener(listener)

	c.notifyChat(surface.ChatCapable)
	if surface.ChatCapable {
		c.ensureConnection()
	}
	return nil
}

// Resume brings an already registered surface back to the front.
func (c *Coordinator) Resume(name string, listener *voicesession.Listener) error {
	c.mu.Lock()
	surface, ok := c.surfaces[name]
	c.mu.Unlock()
	if !ok {
		return shared.ErrNotFound
	}
	return c.Register(surface, listener)
}

func (c *Coordinator) Unregister(name string) error {
	c.mu.Lock()
	if _, ok := c.surfaces[name]; !ok {
		c.mu.Unlock()
		return shared.ErrNotFound
	}
	delete(c.surfaces, name)
	wasCurrent := c.current == name
	if wasCurrent {
		c.current = ""
	}
	empty := len(c.surfaces) == 0
	if empty {
		c.background = true
	}
	c.mu.Unlock()

	c.log.Debug("surface unregistered", "surface", name)
	if wasCurrent {
		c.pipeline.ClearListener()
	}
	if empty {
		c.handleBackground()
	}
	return nil
}

// Pause disables chat for the current surface without touching the
// connection.
func (c *Coordinator) Pause(name string) error {
	c.mu.Lock()
	surface, ok := c.surfaces[name]
	if !ok {
		c.mu.Unlock()
		return shared.ErrNotFound
	}
	affects := c.current == name && surface.ChatCapable
	if affects {
		c.paused = true
	}
	c.mu.Unlock()

	if affects {
		c.notifyChat(false)
	}
	return nil
}

func (c *Coordinator) handleBackground() {
	c.mu.Lock()
	running := c.serviceRunning
	c.mu.Unlock()

	if !running {
		c.log.Info("app backgrounded, disconnecting")
		c.pipeline.Disconnect()
		c.notifyConnection(false)
		return
	}

	c.log.Info("app backgrounded, handing off to background listener", "grace", c.grace)
	if c.service != nil {
		if err := c.service.Resume(context.Background()); err != nil {
			c.log.Warn("failed to resume background listener", "error", err)
		}
	}

	c.mu.Lock()
	c.cancelTeardownLocked()
	c.teardownSeq++
	seq := c.teardownSeq
	c.teardown = c.clock.AfterFunc(c.grace, func() { c.backgroundTeardown(seq) })
	c.mu.Unlock()
}

func (c *Coordinator) backgroundTeardown(seq uint64) {
	c.mu.Lock()
	if seq != c.teardownSeq || c.teardown == nil || !c.background {
		c.mu.Unlock()
		return
	}
	c.teardown = nil
	c.mu.Unlock()

	c.log.Info("grace window elapsed, disconnecting")
	c.pipeline.Disconnect()
	c.notifyConnection(false)
}

func (c *Coordinator) cancelTeardownLocked() {
	if c.teardown != nil {
		c.teardown.Stop()
		c.teardown = nil
	}
	c.teardownSeq++
}

// Foreground reconnects for a chat-capable current surface and pauses the
// background listener. Queued playback is left alone.
func (c *Coordinator) Foreground() {
	c.mu.Lock()
	c.background = false
	c.cancelTeardownLocked()
	running := c.serviceRunning
	surface, ok := c.surfaces[c.current]
	c.mu.Unlock()

	if running && c.service != nil {
		if err := c.service.Pause(context.Background()); err != nil {
			c.log.Warn("failed to pause background listener", "error", err)
		}
	}
	if ok && surface.ChatCapable {
		c.ensureConnection()
	}
}

func (c *Coordinator) ensureConnection() {
	if !c.pipeline.IsConnected() {
		c.log.Debug("ensuring connection")
		c.pipeline.Connect()
	}
	c.notifyConnection(c.pipeline.IsConnected())
}

func (c *Coordinator) swapListener(l *voicesession.Listener) {
	if l == nil {
		c.pipeline.ClearListener()
		return
	}
	c.pipeline.SetListener(l)
}

func (c *Coordinator) SetBackgroundServiceRunning(running bool) {
	c.mu.Lock()
	changed := c.serviceRunning != running
	c.serviceRunning = running
	c.mu.Unlock()
	if changed {
		c.log.Info("background listener state changed", "running", running)
	}
}

func (c *Coordinator) BackgroundServiceRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serviceRunning
}

func (c *Coordinator) IsChatAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	surface, ok := c.surfaces[c.current]
	return ok && surface.ChatCapable && !c.background && !c.paused
}

func (c *Coordinator) Current() (Surface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	surface, ok := c.surfaces[c.current]
	return surface, ok
}

func (c *Coordinator) Surfaces() []Surface {
	c.mu.Lock()
	out := make([]Surface, 0, len(c.surfaces))
	for _, s := range c.surfaces {
		out = append(out, s)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Coordinator) Subscribe(l StateListener) func() {
	id := uuid.NewString()
	c.mu.Lock()
	c.subscribers[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// ConnectionStateChanged receives connection transitions from the session.
func (c *Coordinator) ConnectionStateChanged(connected bool) {
	c.notifyConnection(connected)
}

func (c *Coordinator) snapshotSubscribers() []StateListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StateListener, 0, len(c.subscribers))
	for _, l := range c.subscribers {
		out = append(out, l)
	}
	return out
}

// notifyConnection fans out connection changes, skipping repeats of the last
// reported value.
func (c *Coordinator) notifyConnection(connected bool) {
	c.mu.Lock()
	if c.connKnown && c.connReported == connected {
		c.mu.Unlock()
		return
	}
	c.connKnown = true
	c.connReported = connected
	c.mu.Unlock()

	for _, l := range c.snapshotSubscribers() {
		l.OnConnectionStateChanged(connected)
	}
}

func (c *Coordinator) notifyChat(available bool) {
	for _, l := range c.snapshotSubscribers() {
		l.OnChatAvailabilityChanged(available)
	}
}

type Snapshot struct {
	Current         string    `json:"current,omitempty"`
	Surfaces        []Surface `json:"surfaces"`
	Background      bool      `json:"background"`
	ServiceRunning  bool      `json:"background_service_running"`
	ChatAvailable   bool      `json:"chat_available"`
	TeardownPending bool      `json:"teardown_pending"`
}

func (c *Coordinator) Snapshot() Snapshot {
	surfaces := c.Surfaces()
	chat := c.IsChatAvailable()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Current:         c.current,
		Surfaces:        surfaces,
		Background:      c.background,
		ServiceRunning:  c.serviceRunning,
		ChatAvailable:   chat,
		TeardownPending: c.teardown != nil,
	}
}

func (c *Coordinator) Close() {
	if c.closed.IsBroken() {
		return
	}
	c.closed.Break()

	c.mu.Lock()
	c.cancelTeardownLocked()
	c.subscribers = make(map[string]StateListener)
	c.mu.Unlock()

	if c.unobserve != nil {
		c.unobserve()
	}
	c.pipeline.ClearListener()
	c.pipeline.Disconnect()
	c.log.Info("coordinator closed")
}
