package voicesession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/frostbyte73/core"

	"github.com/vcaremind/voice-client/internal/audio"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/notification"
	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/transport"
)

// Listener is the single callback registration of the active UI surface.
// Unset fields are skipped.
type Listener struct {
	OnConnected         func()
	OnDisconnected      func(code int, reason string)
	OnText              func(text string)
	OnSentence          func(sentence string)
	OnAudio             func(b64 string)
	OnInterrupted       func()
	OnRecordingStarted  func()
	OnRecordingStopped  func()
	OnPlaybackStarted   func()
	OnPlaybackStopped   func()
	OnNotifications     func(list []transport.Notification)
	OnNotificationRead  func(success bool)
	OnNewNotification   func(n transport.Notification)
	OnVoiceNotification func(v notification.VoiceNotification)
	OnError             func(err error)
}

type ConnectionObserver interface {
	ConnectionStateChanged(connected bool)
}

type Metrics interface {
	ConnectionState(state string)
	ReconnectScheduled()
	FrameSent(kind string)
	FrameReceived(kind string)
	MalformedFrame()
	ChunkEmitted()
	PlaybackBuffer()
	PlaybackActive(active bool)
}

type noopMetrics struct{}

func (noopMetrics) ConnectionState(string) {}
func (noopMetrics) ReconnectScheduled()    {}
func (noopMetrics) FrameSent(string)       {}
func (noopMetrics) FrameReceived(string)   {}
func (noopMetrics) MalformedFrame()        {}
func (noopMetrics) ChunkEmitted()          {}
func (noopMetrics) PlaybackBuffer()        {}
func (noopMetrics) PlaybackActive(bool)    {}

type Config struct {
	BargeIn BargeInPolicy
}

type Session struct {
	client        *connection.Client
	recorder      *audio.Recorder
	player        *audio.Player
	notifications *notification.Manager
	announcer     *Announcer
	sentences     *SentenceBuffer
	turn          *TurnTracker
	metrics       Metrics
	clock         clock.Clock
	log           *slog.Logger

	mu        sync.Mutex
	listener  *Listener
	frame     string
	observers []ConnectionObserver
	dropped   bool
	closed    core.Fuse
}

type Deps struct {
	Client        *connection.Client
	Recorder      *audio.Recorder
	Player        *audio.Player
	Notifications *notification.Manager
	Announcer     *Announcer
	Metrics       Metrics
	Clock         clock.Clock
	Log           *slog.Logger
}

func New(cfg Config, deps Deps) *Session {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	s := &Session{
		client:        deps.Client,
		recorder:      deps.Recorder,
		player:        deps.Player,
		notifications: deps.Notifications,
		announcer:     deps.Announcer,
		sentences:     NewSentenceBuffer(),
		turn:          NewTurnTracker(cfg.BargeIn),
		metrics:       metrics,
		clock:         clk,
		log:           log.With("component", "voice_session"),
	}

	s.client.SetCallbacks(connection.Callbacks{
		OnConnected:          s.handleConnected,
		OnDisconnected:       s.handleDisconnected,
		OnError:              s.handleError,
		OnMessage:            s.route,
		OnMalformed:          func([]byte, error) { s.metrics.MalformedFrame() },
		OnStateChange:        func(state connection.State) { s.metrics.ConnectionState(state.String()) },
		OnReconnectScheduled: func(connection.Retry) { s.metrics.ReconnectScheduled() },
	})

	s.recorder.SetCallbacks(audio.RecorderCallbacks{
		OnChunkReady: s.sendChunk,
		OnRecordingStarted: func() {
			if l := s.current(); l != nil && l.OnRecordingStarted != nil {
				l.OnRecordingStarted()
			}
		},
		OnRecordingStopped: func() {
			if l := s.current(); l != nil && l.OnRecordingStopped != nil {
				l.OnRecordingStopped()
			}
		},
	})

	s.player.SetCallbacks(audio.PlayerCallbacks{
		OnPlaybackStarted: s.handlePlaybackStarted,
		OnPlaybackStopped: s.handlePlaybackStopped,
		OnError:           s.handleError,
	})

	if s.notifications != nil {
		s.notifications.SetCallbacks(notification.Callbacks{
			OnNotifications: func(list []transport.Notification) {
				if l := s.current(); l != nil && l.OnNotifications != nil {
					l.OnNotifications(list)
				}
			},
			OnMarkRead: func(resp *transport.Response) {
				if l := s.current(); l != nil && l.OnNotificationRead != nil {
					l.OnNotificationRead(resp.Succeeded())
				}
			},
			OnNotificationCreated: func(n transport.Notification) {
				if l := s.current(); l != nil && l.OnNewNotification != nil {
					l.OnNewNotification(n)
				}
			},
			OnVoiceNotification: func(v notification.VoiceNotification) {
				if l := s.current(); l != nil && l.OnVoiceNotification != nil {
					l.OnVoiceNotification(v)
				}
			},
			OnError: s.handleError,
		})
	}

	return s
}

func (s *Session) Client() *connection.Client {
	return s.client
}

func (s *Session) Player() *audio.Player {
	return s.player
}

func (s *Session) Notifications() *notification.Manager {
	return s.notifications
}

func (s *Session) SetListener(l *Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

func (s *Session) ClearListener() {
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
}

func (s *Session) HasListener() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

func (s *Session) current() *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// Observe registers a connection observer and returns its removal func.
func (s *Session) Observe(o ConnectionObserver) func() {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.observers {
			if existing == o {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) notifyObservers(connected bool) {
	s.mu.Lock()
	observers := append([]ConnectionObserver(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range observers {
		o.ConnectionStateChanged(connected)
	}
}

func (s *Session) Connect() {
	s.client.Connect()
}

func (s *Session) Disconnect() {
	s.client.Disconnect()
}

func (s *Session) IsConnected() bool {
	return s.client.IsConnected()
}

func (s *Session) StartTalking() error {
	if s.closed.IsBroken() {
		return shared.ErrClosed
	}
	for _, action := range s.turn.OnUserStart(s.clock.Now()) {
		s.apply(action)
	}
	if rest := s.sentences.Flush(); rest != "" {
		s.emitSentence(rest)
	}
	return s.recorder.StartInput()
}

func (s *Session) StopTalking() error {
	s.recorder.StopInput()
	for _, action := range s.turn.OnUserEnd(s.clock.Now()) {
		s.apply(action)
	}
	return nil
}

func (s *Session) apply(action Action) {
	switch action.Type {
	case ActionFlushPlayback:
		n := s.player.Flush()
		s.log.Info("playback flushed", "reason", action.Reason, "dropped", n)
	case ActionEndOfStream:
		if err := s.client.SendEndOfStream(); err != nil {
			s.log.Warn("failed to send end of stream", "error", err)
			return
		}
		s.metrics.FrameSent("end_of_stream")
	}
}

// SubmitFrame stores a camera frame that rides along with the next audio
// chunk. A newer frame replaces an unsent one.
func (s *Session) SubmitFrame(jpegB64 string) {
	s.mu.Lock()
	s.frame = jpegB64
	s.mu.Unlock()
}

func (s *Session) takeFrame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.frame
	s.frame = ""
	return frame
}

func (s *Session) SendText(text string) error {
	if err := s.client.SendText(text); err != nil {
		return err
	}
	s.metrics.FrameSent("text")
	return nil
}

func (s *Session) sendChunk(b64 string) {
	s.metrics.ChunkEmitted()
	frame := s.takeFrame()
	if err := s.client.SendRealtimeInput(b64, frame); err != nil {
		if frame != "" {
			s.SubmitFrame(frame)
		}
		if !errors.Is(err, shared.ErrNotConnected) {
			s.log.Warn("failed to send audio chunk", "error", err)
		}
		return
	}
	s.metrics.FrameSent("realtime_input")
}

func (s *Session) route(resp *transport.Response) {
	kind := resp.Kind()
	s.metrics.FrameReceived(kind.String())
	l := s.current()

	switch kind {
	case transport.KindAI:
		if resp.IsInterrupted() {
			dropped := s.player.Flush()
			s.sentences.Reset()
			s.turn.OnServerInterrupt(s.clock.Now())
			s.log.Info("server interrupted response", "dropped", dropped)
			if l != nil && l.OnInterrupted != nil {
				l.OnInterrupted()
			}
		}
		if resp.Audio != "" {
			s.player.Enqueue(resp.Audio)
			s.metrics.PlaybackBuffer()
			if l != nil && l.OnAudio != nil {
				l.OnAudio(resp.Audio)
			}
		}
		if resp.Text != "" {
			if l != nil && l.OnText != nil {
				l.OnText(resp.Text)
			}
			for _, sentence := range s.sentences.Add(resp.Text) {
				s.emitSentence(sentence)
			}
		}
	case transport.KindPong:
	case transport.KindUnknown:
		s.log.Debug("ignoring unknown frame", "type", resp.Type)
	default:
		if s.notifications != nil {
			s.notifications.Handle(resp)
		}
	}
}

func (s *Session) emitSentence(sentence string) {
	if l := s.current(); l != nil && l.OnSentence != nil {
		l.OnSentence(sentence)
	}
}

// Announce plays a local prompt when the output is free.
func (s *Session) Announce(name string) error {
	if s.announcer == nil {
		return shared.ErrDeviceUnavailable
	}
	if s.closed.IsBroken() {
		return shared.ErrClosed
	}
	s.announcer.Announce(context.Background(), name)
	return nil
}

func (s *Session) handleConnected() {
	s.mu.Lock()
	recovered := s.dropped
	s.dropped = false
	s.mu.Unlock()
	if recovered && s.announcer != nil {
		s.announcer.Announce(context.Background(), PromptReconnected)
	}

	if l := s.current(); l != nil && l.OnConnected != nil {
		l.OnConnected()
	}
	s.notifyObservers(true)
}

func (s *Session) handleDisconnected(code int, reason string) {
	if code != transport.CloseNormal && s.client.ReconnectEnabled() {
		s.mu.Lock()
		first := !s.dropped
		s.dropped = true
		s.mu.Unlock()
		if first && s.announcer != nil {
			s.announcer.Announce(context.Background(), PromptConnectionLost)
		}
	}
	if l := s.current(); l != nil && l.OnDisconnected != nil {
		l.OnDisconnected(code, reason)
	}
	s.notifyObservers(false)
}

func (s *Session) handleError(err error) {
	if l := s.current(); l != nil && l.OnError != nil {
		l.OnError(err)
	}
}

func (s *Session) handlePlaybackStarted() {
	s.turn.OnPlaybackStart(s.clock.Now())
	s.metrics.PlaybackActive(true)
	if l := s.current(); l != nil && l.OnPlaybackStarted != nil {
		l.OnPlaybackStarted()
	}
}

func (s *Session) handlePlaybackStopped() {
	s.turn.OnPlaybackEnd(s.clock.Now())
	s.metrics.PlaybackActive(false)
	if rest := s.sentences.Flush(); rest != "" {
		s.emitSentence(rest)
	}
	if l := s.current(); l != nil && l.OnPlaybackStopped != nil {
		l.OnPlaybackStopped()
	}
}

type Status struct {
	Connection  string    `json:"connection"`
	Retries     int       `json:"retries"`
	Recording   bool      `json:"recording"`
	Playing     bool      `json:"playing"`
	QueueLength int       `json:"queue_length"`
	Volume      float64   `json:"volume"`
	Turn        TurnStats `json:"turn"`
	Listener    bool      `json:"listener"`
}

func (s *Session) Status() Status {
	return Status{
		Connection:  s.client.State().String(),
		Retries:     s.client.Retries(),
		Recording:   s.recorder.IsRecording(),
		Playing:     s.player.IsPlaying(),
		QueueLength: s.player.QueueLen(),
		Volume:      s.player.Volume(),
		Turn:        s.turn.Stats(),
		Listener:    s.HasListener(),
	}
}

func (s *Session) Close() error {
	if s.closed.IsBroken() {
		return nil
	}
	s.closed.Break()

	s.recorder.StopInput()
	s.client.Disconnect()
	s.ClearListener()
	if s.announcer != nil {
		s.announcer.Clear()
	}
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	s.log.Info("voice session closed")
	return nil
}
