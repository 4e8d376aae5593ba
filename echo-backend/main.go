package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type inbound struct {
	Setup         json.RawMessage `json:"setup,omitempty"`
	Type          string          `json:"type,omitempty"`
	Text          *string         `json:"text,omitempty"`
	EndOfStream   bool            `json:"end_of_stream,omitempty"`
	RealtimeInput *struct {
		MediaChunks []struct {
			MimeType string `json:"mime_type"`
			Data     string `json:"data"`
		} `json:"media_chunks"`
	} `json:"realtime_input,omitempty"`
	NotificationRequest *struct {
		Action string `json:"action"`
	} `json:"notification_request,omitempty"`
	VoiceNotificationRequest *struct {
		Text      string `json:"text"`
		Type      string `json:"type"`
		RequestID string `json:"request_id"`
	} `json:"voice_notification_request,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Printf("[ECHO] Marshal error: %v\n", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		fmt.Printf("[ECHO] WriteMessage error: %v\n", err)
	}
}

func main() {
	addr := os.Getenv("ECHO_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	http.HandleFunc("/ws", serve)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("[ECHO] Shutting down...")
		os.Exit(0)
	}()

	fmt.Printf("[ECHO] Listening on %s/ws\n", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func serve(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("[ECHO] Upgrade failed: %v\n", err)
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}
	fmt.Printf("[ECHO] Client connected from %s\n", r.RemoteAddr)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			fmt.Printf("[ECHO] Read error: %v\n", err)
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Printf("[ECHO] Unmarshal error: %v\n", err)
			continue
		}
		handle(c, msg)
	}
}

func handle(c *conn, msg inbound) {
	switch {
	case msg.Setup != nil:
		fmt.Println("[ECHO] Setup received")
	case msg.Type == "ping":
		c.send(map[string]any{"type": "pong"})
	case msg.Text != nil:
		text := strings.TrimSpace(*msg.Text)
		fmt.Printf("[ECHO] Text: %q\n", text)
		if text != "" {
			c.send(map[string]any{"text": "You said: " + text + "."})
		}
	case msg.EndOfStream:
		fmt.Println("[ECHO] End of stream")
		c.send(map[string]any{"text": "Turn received."})
	case msg.RealtimeInput != nil:
		for _, chunk := range msg.RealtimeInput.MediaChunks {
			if chunk.MimeType == "audio/pcm" {
				c.send(map[string]any{"audio": chunk.Data})
			}
		}
	case msg.NotificationRequest != nil:
		handleNotificationRequest(c, msg.NotificationRequest.Action)
	case msg.VoiceNotificationRequest != nil:
		req := msg.VoiceNotificationRequest
		fmt.Printf("[ECHO] Voice notification: %q (%s)\n", req.Text, req.Type)
		c.send(map[string]any{
			"type":       "voice_notification_response",
			"request_id": req.RequestID,
			"success":    true,
			"data": map[string]any{
				"notification_text": req.Text,
				"notification_type": req.Type,
				"audio_base64":      silence(250 * time.Millisecond),
				"audio_format":      "pcm_24000",
				"timestamp":         time.Now().UTC().Format(time.RFC3339),
			},
		})
	default:
		fmt.Println("[ECHO] Ignoring unrecognised frame")
	}
}

func handleNotificationRequest(c *conn, action string) {
	fmt.Printf("[ECHO] Notification request: %s\n", action)
	switch action {
	case "get_notifications":
		c.send(map[string]any{
			"type": "notifications_response",
			"notifications": []map[string]any{
				{"id": "n_1", "title": "Reminder", "message": "Take your tablet", "type": "reminder"},
			},
		})
	case "mark_read":
		c.send(map[string]any{"type": "mark_read_response", "success": true})
	}
}

func silence(d time.Duration) string {
	samples := int(d.Seconds() * 24000)
	return base64.StdEncoding.EncodeToString(make([]byte, samples*2))
}
