package control

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vcaremind/voice-client/internal/notification"
	"github.com/vcaremind/voice-client/internal/transport"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

type EventType string

const (
	EventConnected         EventType = "connected"
	EventDisconnected      EventType = "disconnected"
	EventText              EventType = "text"
	EventSentence          EventType = "sentence"
	EventAudio             EventType = "audio"
	EventInterrupted       EventType = "interrupted"
	EventRecordingStarted  EventType = "recording_started"
	EventRecordingStopped  EventType = "recording_stopped"
	EventPlaybackStarted   EventType = "playback_started"
	EventPlaybackStopped   EventType = "playback_stopped"
	EventNotifications     EventType = "notifications"
	EventNotificationRead  EventType = "notification_read"
	EventNotification      EventType = "notification_created"
	EventVoiceNotification EventType = "voice_notification"
	EventError             EventType = "error"
)

const streamBuffer = 128

type Event struct {
	Type      EventType `json:"type"`
	Surface   string    `json:"surface"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans session events out to the event streams opened by each surface.
// A surface only hears what its own listener is given, so once another
// surface takes the listener slot its streams go quiet.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	streams map[string]map[string]chan Event
	closed  bool
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log.With("component", "event_hub"),
		streams: make(map[string]map[string]chan Event),
	}
}

// Subscribe opens an event stream for the surface. The returned func closes
// it.
func (h *Hub) Subscribe(surface string) (<-chan Event, func()) {
	ch := make(chan Event, streamBuffer)
	id := uuid.NewString()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.streams[surface] == nil {
		h.streams[surface] = make(map[string]chan Event)
	}
	h.streams[surface][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.streams[surface]; ok {
				if _, ok := subs[id]; ok {
					delete(subs, id)
					close(ch)
				}
				if len(subs) == 0 {
					delete(h.streams, surface)
				}
			}
		})
	}
}

func (h *Hub) Subscribers(surface string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[surface])
}

func (h *Hub) Publish(surface string, typ EventType, data any) {
	event := Event{
		Type:      typ,
		Surface:   surface,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.streams[surface] {
		select {
		case ch <- event:
		default:
			h.log.Warn("event stream full, dropping event", "surface", surface, "type", typ)
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for surface, subs := range h.streams {
		for _, ch := range subs {
			close(ch)
		}
		delete(h.streams, surface)
	}
}

// ListenerFor builds the session listener a surface registers with.
func (h *Hub) ListenerFor(surface string) *voicesession.Listener {
	publish := func(typ EventType, data any) {
		h.Publish(surface, typ, data)
	}
	return &voicesession.Listener{
		OnConnected: func() { publish(EventConnected, nil) },
		OnDisconnected: func(code int, reason string) {
			publish(EventDisconnected, map[string]any{"code": code, "reason": reason})
		},
		OnText:             func(text string) { publish(EventText, text) },
		OnSentence:         func(sentence string) { publish(EventSentence, sentence) },
		OnAudio:            func(b64 string) { publish(EventAudio, map[string]int{"bytes": len(b64)}) },
		OnInterrupted:      func() { publish(EventInterrupted, nil) },
		OnRecordingStarted: func() { publish(EventRecordingStarted, nil) },
		OnRecordingStopped: func() { publish(EventRecordingStopped, nil) },
		OnPlaybackStarted:  func() { publish(EventPlaybackStarted, nil) },
		OnPlaybackStopped:  func() { publish(EventPlaybackStopped, nil) },
		OnNotifications: func(list []transport.Notification) {
			publish(EventNotifications, list)
		},
		OnNotificationRead: func(success bool) {
			publish(EventNotificationRead, map[string]bool{"success": success})
		},
		OnNewNotification: func(n transport.Notification) { publish(EventNotification, n) },
		OnVoiceNotification: func(v notification.VoiceNotification) {
			v.AudioBase64 = ""
			publish(EventVoiceNotification, v)
		},
		OnError: func(err error) { publish(EventError, err.Error()) },
	}
}
