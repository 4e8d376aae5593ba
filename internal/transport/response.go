package transport

import (
	"encoding/json"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAI
	KindNotifications
	KindMarkRead
	KindNotificationCreated
	KindVoiceNotification
	KindPong
)

func (k Kind) String() string {
	switch k {
	case KindAI:
		return "ai"
	case KindNotifications:
		return "notifications"
	case KindMarkRead:
		return "mark_read"
	case KindNotificationCreated:
		return "notification_created"
	case KindVoiceNotification:
		return "voice_notification"
	case KindPong:
		return "pong"
	default:
		return "unknown"
	}
}

// Response is any inbound server frame. Frames without a "type" are AI
// responses carrying text, audio or an interruption marker.
type Response struct {
	Type          MessageType            `json:"type,omitempty"`
	Text          string                 `json:"text,omitempty"`
	Audio         string                 `json:"audio,omitempty"`
	Interrupted   FlexString             `json:"interrupted,omitempty"`
	TurnDetection *TurnDetection         `json:"turn_detection,omitempty"`
	Success       *bool                  `json:"success,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Message       string                 `json:"message,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	Broadcast     bool                   `json:"broadcast,omitempty"`
	Notifications []Notification         `json:"notifications,omitempty"`
	Notification  *Notification          `json:"notification,omitempty"`
	Data          *VoiceNotificationData `json:"data,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	resp.Raw = append(json.RawMessage(nil), data...)
	return &resp, nil
}

func (r *Response) Kind() Kind {
	switch r.Type {
	case "":
		return KindAI
	case MessageTypeNotificationsResponse:
		return KindNotifications
	case MessageTypeMarkReadResponse:
		return KindMarkRead
	case MessageTypeNotificationCreated:
		return KindNotificationCreated
	case MessageTypeVoiceNotificationResponse, MessageTypeVoiceNotification:
		return KindVoiceNotification
	case MessageTypePing, "pong":
		return KindPong
	default:
		return KindUnknown
	}
}

func (r *Response) IsInterrupted() bool {
	return r.Interrupted.Truthy()
}

func (r *Response) Succeeded() bool {
	return r.Success != nil && *r.Success
}

// VoiceNotificationData is the "data" object of a voice notification. The
// realtime socket sends snake_case keys and the HTTP broadcast path sends
// camelCase; both are accepted.
type VoiceNotificationData struct {
	Message          string `json:"message,omitempty"`
	NotificationText string `json:"notification_text,omitempty"`
	AudioBase64      string `json:"audio_base64,omitempty"`
	AudioFormat      string `json:"audio_format,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	Service          string `json:"service,omitempty"`
}

func (d *VoiceNotificationData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message               string     `json:"message"`
		NotificationText      string     `json:"notification_text"`
		NotificationTextCamel string     `json:"notificationText"`
		AudioBase64           string     `json:"audio_base64"`
		AudioBase64Camel      string     `json:"audioBase64"`
		AudioFormat           string     `json:"audio_format"`
		AudioFormatCamel      string     `json:"audioFormat"`
		NotificationType      string     `json:"notification_type"`
		NotificationTypeCamel string     `json:"notificationType"`
		Timestamp             FlexString `json:"timestamp"`
		Service               string     `json:"service"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = VoiceNotificationData{
		Message:          raw.Message,
		NotificationText: firstNonEmpty(raw.NotificationText, raw.NotificationTextCamel),
		AudioBase64:      firstNonEmpty(raw.AudioBase64, raw.AudioBase64Camel),
		AudioFormat:      firstNonEmpty(raw.AudioFormat, raw.AudioFormatCamel),
		NotificationType: firstNonEmpty(raw.NotificationType, raw.NotificationTypeCamel),
		Timestamp:        raw.Timestamp.String(),
		Service:          raw.Service,
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
