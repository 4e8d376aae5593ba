package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vcaremind/voice-client/internal/shared"
)

const (
	MimeTypePCM  = "audio/pcm"
	MimeTypeJPEG = "image/jpeg"

	CloseNormal   = 1000
	CloseAbnormal = 1006
)

type MessageType string

const (
	MessageTypePing                      MessageType = "ping"
	MessageTypeNotificationsResponse     MessageType = "notifications_response"
	MessageTypeMarkReadResponse          MessageType = "mark_read_response"
	MessageTypeNotificationCreated       MessageType = "notification_created"
	MessageTypeVoiceNotificationResponse MessageType = "voice_notification_response"
	MessageTypeVoiceNotification         MessageType = "voice_notification"
)

const (
	ActionGetNotifications          = "get_notifications"
	ActionMarkRead                  = "mark_read"
	ActionGenerateVoiceNotification = "generate_voice_notification"
)

type SetupMessage struct {
	Setup Setup `json:"setup"`
}

type Setup struct {
	GenerationConfig GenerationConfig `json:"generation_config"`
}

type GenerationConfig struct {
	ResponseModalities []string `json:"response_modalities"`
}

func NewSetupMessage() SetupMessage {
	return SetupMessage{
		Setup: Setup{
			GenerationConfig: GenerationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
		},
	}
}

type MediaChunk struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type RealtimeInput struct {
	MediaChunks []MediaChunk `json:"media_chunks"`
}

type RealtimeInputMessage struct {
	RealtimeInput RealtimeInput `json:"realtime_input"`
	EndOfStream   bool          `json:"end_of_stream,omitempty"`
}

// NewRealtimeInput builds a streaming input frame. Either chunk may be empty
// but not both.
func NewRealtimeInput(audioB64, imageB64 string) (RealtimeInputMessage, error) {
	if audioB64 == "" && imageB64 == "" {
		return RealtimeInputMessage{}, shared.ErrEmptyPayload
	}

	chunks := make([]MediaChunk, 0, 2)
	if audioB64 != "" {
		chunks = append(chunks, MediaChunk{MimeType: MimeTypePCM, Data: audioB64})
	}
	if imageB64 != "" {
		chunks = append(chunks, MediaChunk{MimeType: MimeTypeJPEG, Data: imageB64})
	}

	return RealtimeInputMessage{RealtimeInput: RealtimeInput{MediaChunks: chunks}}, nil
}

func NewEndOfStream() RealtimeInputMessage {
	return RealtimeInputMessage{
		RealtimeInput: RealtimeInput{MediaChunks: []MediaChunk{}},
		EndOfStream:   true,
	}
}

type PingMessage struct {
	Type MessageType `json:"type"`
}

func NewPing() PingMessage {
	return PingMessage{Type: MessageTypePing}
}

type TextMessage struct {
	Text string `json:"text"`
}

// NotificationRequest carries an action plus free-form parameters that are
// flattened next to "action" on the wire.
type NotificationRequest struct {
	Action string
	Params map[string]any
}

func (r NotificationRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Params)+1)
	for k, v := range r.Params {
		out[k] = v
	}
	out["action"] = r.Action
	return json.Marshal(out)
}

type NotificationRequestMessage struct {
	NotificationRequest NotificationRequest `json:"notification_request"`
}

func NewNotificationRequest(action string, params map[string]any) NotificationRequestMessage {
	return NotificationRequestMessage{
		NotificationRequest: NotificationRequest{Action: action, Params: params},
	}
}

type VoiceNotificationRequest struct {
	Action    string `json:"action"`
	Text      string `json:"text"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

type VoiceNotificationRequestMessage struct {
	VoiceNotificationRequest VoiceNotificationRequest `json:"voice_notification_request"`
}

func NewVoiceNotificationRequest(text, kind, requestID string) VoiceNotificationRequestMessage {
	if kind == "" {
		kind = "info"
	}
	return VoiceNotificationRequestMessage{
		VoiceNotificationRequest: VoiceNotificationRequest{
			Action:    ActionGenerateVoiceNotification,
			Text:      text,
			Type:      kind,
			RequestID: requestID,
		},
	}
}

// FlexString accepts a JSON string, number or bool and keeps its text form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// Truthy reports whether the value reads as a true flag ("True", "true", 1).
func (f FlexString) Truthy() bool {
	b, err := strconv.ParseBool(string(f))
	return err == nil && b
}

func (f FlexString) String() string {
	return string(f)
}

type Notification struct {
	ID        FlexString `json:"id"`
	Title     string     `json:"title,omitempty"`
	Message   string     `json:"message,omitempty"`
	Type      string     `json:"type,omitempty"`
	Timestamp FlexString `json:"timestamp,omitempty"`
	IsRead    bool       `json:"is_read,omitempty"`
}

type TurnDetection struct {
	Type string `json:"type"`
}

func (m MessageType) String() string {
	return string(m)
}

func (m MessageType) Valid() error {
	switch m {
	case MessageTypePing, MessageTypeNotificationsResponse, MessageTypeMarkReadResponse,
		MessageTypeNotificationCreated, MessageTypeVoiceNotificationResponse, MessageTypeVoiceNotification:
		return nil
	}
	return fmt.Errorf("unknown message type %q", string(m))
}
