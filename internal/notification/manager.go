package notification

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/transport"
)

const (
	DefaultCooldown = time.Second
	pendingTTL      = 2 * time.Minute

	KindInfo      = "info"
	KindReminder  = "reminder"
	KindEmergency = "emergency"
)

type VoiceNotification struct {
	RequestID   string `json:"request_id,omitempty"`
	Text        string `json:"text"`
	Message     string `json:"message,omitempty"`
	AudioBase64 string `json:"audio_base64"`
	AudioFormat string `json:"audio_format"`
	Type        string `json:"type,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Service     string `json:"service,omitempty"`
	Broadcast   bool   `json:"broadcast,omitempty"`
}

type Callbacks struct {
	OnNotifications       func(list []transport.Notification)
	OnMarkRead            func(resp *transport.Response)
	OnNotificationCreated func(n transport.Notification)
	OnVoiceNotification   func(v VoiceNotification)
	OnError               func(err error)
}

type AudioSink interface {
	Enqueue(b64 string)
}

type Config struct {
	Cooldown time.Duration
	AutoPlay bool
}

type pendingRequest struct {
	text   string
	kind   string
	sentAt time.Time
}

type Manager struct {
	sender transport.Sender
	sink   AudioSink
	clock  clock.Clock
	cfg    Config
	log    *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time
	pending     map[string]pendingRequest
	cb          Callbacks
}

func NewManager(cfg Config, sender transport.Sender, sink AudioSink, clk clock.Clock, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Manager{
		sender:  sender,
		sink:    sink,
		clock:   clk,
		cfg:     cfg,
		log:     log.With("component", "notifications"),
		pending: make(map[string]pendingRequest),
	}
}

func (m *Manager) SetCallbacks(cb Callbacks) {
	m.mu.Lock()
	m.cb = cb
	m.mu.Unlock()
}

func (m *Manager) callbacks() Callbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb
}

// RequestVoiceNotification asks the backend to synthesise text. Requests
// inside the cooldown window are dropped.
func (m *Manager) RequestVoiceNotification(text, kind string) (string, error) {
	if text == "" {
		return "", shared.ErrEmptyPayload
	}
	if kind == "" {
		kind = KindInfo
	}

	now := m.clock.Now()
	m.mu.Lock()
	if !m.lastRequest.IsZero() && now.Sub(m.lastRequest) < m.cfg.Cooldown {
		m.mu.Unlock()
		m.log.Warn("voice notification request ignored, cooldown active", "type", kind)
		return "", shared.ErrCooldown
	}
	m.mu.Unlock()

	if !m.sender.IsConnected() {
		m.log.Error("cannot request voice notification", "error", shared.ErrNotConnected)
		m.emitError(shared.ErrNotConnected)
		return "", shared.ErrNotConnected
	}

	requestID := shared.NewID("vn_")
	m.mu.Lock()
	m.lastRequest = now
	m.prunePendingLocked(now)
	m.pending[requestID] = pendingRequest{text: text, kind: kind, sentAt: now}
	m.mu.Unlock()

	if err := m.sender.Send(transport.NewVoiceNotificationRequest(text, kind, requestID)); err != nil {
		m.mu.Lock()
		delete(m.pending, requestID)
		m.mu.Unlock()
		m.log.Error("failed to send voice notification request", "error", err)
		m.emitError(err)
		return "", fmt.Errorf("request voice notification: %w", err)
	}

	m.log.Info("voice notification requested", "request_id", requestID, "type", kind)
	return requestID, nil
}

func (m *Manager) RequestEmergencyVoiceNotification(text string) (string, error) {
	return m.RequestVoiceNotification(text, KindEmergency)
}

func (m *Manager) FetchNotifications(params map[string]any) error {
	return m.sendRequest(transport.ActionGetNotifications, params)
}

func (m *Manager) MarkRead(ids []string) error {
	if len(ids) == 0 {
		return shared.ErrEmptyPayload
	}
	return m.sendRequest(transport.ActionMarkRead, map[string]any{"notification_ids": ids})
}

func (m *Manager) sendRequest(action string, params map[string]any) error {
	if !m.sender.IsConnected() {
		m.emitError(shared.ErrNotConnected)
		return shared.ErrNotConnected
	}
	if err := m.sender.Send(transport.NewNotificationRequest(action, params)); err != nil {
		m.log.Error("failed to send notification request", "action", action, "error", err)
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Handle consumes notification frames and reports whether resp was one.
func (m *Manager) Handle(resp *transport.Response) bool {
	cb := m.callbacks()

	switch resp.Kind() {
	case transport.KindNotifications:
		if cb.OnNotifications != nil {
			cb.OnNotifications(resp.Notifications)
		}
	case transport.KindMarkRead:
		if cb.OnMarkRead != nil {
			cb.OnMarkRead(resp)
		}
	case transport.KindNotificationCreated:
		if resp.Notification == nil {
			m.log.Warn("notification_created without payload")
			return true
		}
		if cb.OnNotificationCreated != nil {
			cb.OnNotificationCreated(*resp.Notification)
		}
	case transport.KindVoiceNotification:
		m.handleVoice(resp, cb)
	default:
		return false
	}
	return true
}

func (m *Manager) handleVoice(resp *transport.Response, cb Callbacks) {
	if resp.RequestID != "" {
		m.mu.Lock()
		delete(m.pending, resp.RequestID)
		m.mu.Unlock()
	}

	if !resp.Succeeded() || resp.Data == nil || resp.Data.AudioBase64 == "" {
		reason := resp.Error
		if reason == "" {
			reason = "no audio in response"
		}
		err := fmt.Errorf("voice notification failed: %s", reason)
		m.log.Warn("voice notification failed", "request_id", resp.RequestID, "error", reason)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}

	vn := VoiceNotification{
		RequestID:   resp.RequestID,
		Text:        resp.Data.NotificationText,
		Message:     resp.Data.Message,
		AudioBase64: resp.Data.AudioBase64,
		AudioFormat: resp.Data.AudioFormat,
		Type:        resp.Data.NotificationType,
		Timestamp:   resp.Data.Timestamp,
		Service:     resp.Data.Service,
		Broadcast:   resp.Broadcast,
	}
	if vn.AudioFormat == "" {
		vn.AudioFormat = transport.MimeTypePCM
	}

	m.log.Info("voice notification received", "request_id", vn.RequestID, "broadcast", vn.Broadcast)
	if cb.OnVoiceNotification != nil {
		cb.OnVoiceNotification(vn)
	}
	if m.cfg.AutoPlay && m.sink != nil {
		m.sink.Enqueue(vn.AudioBase64)
	}
}

func (m *Manager) prunePendingLocked(now time.Time) {
	for id, req := range m.pending {
		if now.Sub(req.sentAt) > pendingTTL {
			delete(m.pending, id)
		}
	}
}

func (m *Manager) emitError(err error) {
	if cb := m.callbacks().OnError; cb != nil {
		cb(err)
	}
}

func IsCooldown(err error) bool {
	return errors.Is(err, shared.ErrCooldown)
}
