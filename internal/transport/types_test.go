package transport

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vcaremind/voice-client/internal/shared"
)

func TestNewRealtimeInput(t *testing.T) {
	tests := []struct {
		name   string
		audio  string
		image  string
		mimes  []string
		hasErr bool
	}{
		{"audio only", "AAA=", "", []string{MimeTypePCM}, false},
		{"image only", "", "/9j/", []string{MimeTypeJPEG}, false},
		{"audio and image", "AAA=", "/9j/", []string{MimeTypePCM, MimeTypeJPEG}, false},
		{"empty", "", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewRealtimeInput(tt.audio, tt.image)
			if tt.hasErr {
				if !errors.Is(err, shared.ErrEmptyPayload) {
					t.Fatalf("expected ErrEmptyPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(msg.RealtimeInput.MediaChunks) != len(tt.mimes) {
				t.Fatalf("expected %d chunks, got %d", len(tt.mimes), len(msg.RealtimeInput.MediaChunks))
			}
			for i, mime := range tt.mimes {
				if msg.RealtimeInput.MediaChunks[i].MimeType != mime {
					t.Errorf("chunk %d: expected %s, got %s", i, mime, msg.RealtimeInput.MediaChunks[i].MimeType)
				}
			}
		})
	}
}

func TestRealtimeInputWireShape(t *testing.T) {
	msg, _ := NewRealtimeInput("AAA=", "")
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"realtime_input":{"media_chunks":[{"mime_type":"audio/pcm","data":"AAA="}]}}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestEndOfStreamWireShape(t *testing.T) {
	data, err := json.Marshal(NewEndOfStream())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"realtime_input":{"media_chunks":[]},"end_of_stream":true}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestSetupAndPingWireShape(t *testing.T) {
	setup, _ := json.Marshal(NewSetupMessage())
	if string(setup) != `{"setup":{"generation_config":{"response_modalities":["AUDIO"]}}}` {
		t.Errorf("unexpected setup: %s", setup)
	}
	ping, _ := json.Marshal(NewPing())
	if string(ping) != `{"type":"ping"}` {
		t.Errorf("unexpected ping: %s", ping)
	}
}

func TestNotificationRequestFlattensParams(t *testing.T) {
	msg := NewNotificationRequest(ActionMarkRead, map[string]any{"notification_ids": []string{"1", "2"}})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	req := decoded["notification_request"]
	if req["action"] != ActionMarkRead {
		t.Errorf("expected action %s, got %v", ActionMarkRead, req["action"])
	}
	ids, ok := req["notification_ids"].([]any)
	if !ok || len(ids) != 2 {
		t.Errorf("expected two ids, got %v", req["notification_ids"])
	}
}

func TestNotificationRequestActionWins(t *testing.T) {
	msg := NewNotificationRequest(ActionGetNotifications, map[string]any{"action": "spoofed", "limit": 5})
	data, _ := json.Marshal(msg)

	var decoded map[string]map[string]any
	_ = json.Unmarshal(data, &decoded)
	if decoded["notification_request"]["action"] != ActionGetNotifications {
		t.Errorf("params must not override action, got %v", decoded["notification_request"]["action"])
	}
}

func TestNewVoiceNotificationRequest(t *testing.T) {
	msg := NewVoiceNotificationRequest("take your pills", "", "req-1")
	req := msg.VoiceNotificationRequest
	if req.Action != ActionGenerateVoiceNotification {
		t.Errorf("unexpected action %s", req.Action)
	}
	if req.Type != "info" {
		t.Errorf("expected default type info, got %s", req.Type)
	}
	if req.RequestID != "req-1" {
		t.Errorf("expected request id req-1, got %s", req.RequestID)
	}
}

func TestMessageTypeValid(t *testing.T) {
	if err := MessageTypeNotificationCreated.Valid(); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
	if err := MessageType("bogus").Valid(); err == nil {
		t.Error("expected error for unknown type")
	}
}
