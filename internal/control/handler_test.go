package control

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/vcaremind/voice-client/internal/audio"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/coordinator"
	"github.com/vcaremind/voice-client/internal/dto"
	"github.com/vcaremind/voice-client/internal/notification"
	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/voicesession"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startTextBackend replies to every text frame with an AI text response.
func startTextBackend(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(data), `"text":"`) {
				_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"text":"reply"}`))
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type testEnv struct {
	echo    *echo.Echo
	handler *Handler
	session *voicesession.Session
	coord   *coordinator.Coordinator
	hub     *Hub
}

func newTestEnv(t *testing.T, url string) *testEnv {
	t.Helper()
	log := testLogger()
	gate := audio.NewGate()
	client := connection.NewClient(connection.Config{URL: url}, connection.WithLogger(log))
	recorder := audio.NewRecorder(audio.RecorderConfig{}, audio.NewReaderDevice(strings.NewReader(""), false), gate, nil, log)
	player := audio.NewPlayer(audio.PlayerConfig{}, audio.DiscardDevice{}, gate, log)
	notifications := notification.NewManager(notification.Config{}, client, player, nil, log)

	session := voicesession.New(voicesession.Config{}, voicesession.Deps{
		Client:        client,
		Recorder:      recorder,
		Player:        player,
		Notifications: notifications,
		Log:           log,
	})
	coord := coordinator.New(coordinator.Config{}, session, nil, clock.NewMock(), log)
	hub := NewHub(log)
	t.Cleanup(func() {
		hub.Close()
		coord.Close()
		session.Close()
	})

	h := NewHandler(session, coord, hub, log)
	e := echo.New()
	h.RegisterRoutes(e.Group("/v1"))
	return &testEnv{echo: e, handler: h, session: session, coord: coord, hub: hub}
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr shared.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return apiErr.Code
}

func TestHandler_SurfaceLifecycle(t *testing.T) {
	env := newTestEnv(t, "ws://127.0.0.1:1/ws")

	rec := env.do(http.MethodPut, "/v1/surfaces/settings", `{"chat_capable":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.SurfaceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Name != "settings" || resp.ChatCapable || resp.ChatAvailable {
		t.Errorf("unexpected response %+v", resp)
	}
	if !env.session.HasListener() {
		t.Error("registered surface should hold the listener slot")
	}

	rec = env.do(http.MethodGet, "/v1/status", "")
	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Coordinator.Current != "settings" {
		t.Errorf("expected current surface settings, got %q", status.Coordinator.Current)
	}
	if !status.Session.Listener {
		t.Error("status should report a listener")
	}

	if rec := env.do(http.MethodPost, "/v1/surfaces/settings/pause", ""); rec.Code != http.StatusNoContent {
		t.Errorf("pause: expected 204, got %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/v1/surfaces/settings/resume", ""); rec.Code != http.StatusOK {
		t.Errorf("resume: expected 200, got %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/v1/surfaces/settings", ""); rec.Code != http.StatusNoContent {
		t.Errorf("unregister: expected 204, got %d", rec.Code)
	}
	if env.session.HasListener() {
		t.Error("listener should be cleared after the current surface leaves")
	}
}

func TestHandler_UnknownSurface(t *testing.T) {
	env := newTestEnv(t, "ws://127.0.0.1:1/ws")

	for _, path := range []string{"/v1/surfaces/ghost/pause", "/v1/surfaces/ghost/resume"} {
		rec := env.do(http.MethodPost, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	rec := env.do(http.MethodDelete, "/v1/surfaces/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "not_found" {
		t.Errorf("unexpected error code %q", code)
	}
}

func TestHandler_Background(t *testing.T) {
	env := newTestEnv(t, "ws://127.0.0.1:1/ws")

	if rec := env.do(http.MethodPut, "/v1/background", `{"running":true}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !env.coord.BackgroundServiceRunning() {
		t.Error("background service should be marked running")
	}
	if rec := env.do(http.MethodPost, "/v1/foreground", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_Validation(t *testing.T) {
	env := newTestEnv(t, "ws://127.0.0.1:1/ws")

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"empty text", http.MethodPost, "/v1/text", `{"text":"  "}`, http.StatusBadRequest, "missing_text"},
		{"text while disconnected", http.MethodPost, "/v1/text", `{"text":"hi"}`, http.StatusServiceUnavailable, "not_connected"},
		{"missing frame", http.MethodPost, "/v1/frame", `{}`, http.StatusBadRequest, "missing_image"},
		{"invalid frame", http.MethodPost, "/v1/frame", `{"image":"not base64!"}`, http.StatusBadRequest, "invalid_image"},
		{"missing prompt", http.MethodPost, "/v1/announce", `{}`, http.StatusBadRequest, "missing_prompt"},
		{"no announcer", http.MethodPost, "/v1/announce", `{"prompt":"reconnected"}`, http.StatusServiceUnavailable, "device_unavailable"},
		{"empty notification", http.MethodPost, "/v1/notifications/voice", `{"text":""}`, http.StatusBadRequest, "empty_payload"},
		{"notification while disconnected", http.MethodPost, "/v1/notifications/voice", `{"text":"take your tablet"}`, http.StatusServiceUnavailable, "not_connected"},
		{"mark read without ids", http.MethodPost, "/v1/notifications/read", `{"ids":[]}`, http.StatusBadRequest, "empty_payload"},
		{"fetch while disconnected", http.MethodPost, "/v1/notifications/fetch", "", http.StatusServiceUnavailable, "not_connected"},
		{"malformed body", http.MethodPut, "/v1/surfaces/main", `{"chat_capable":`, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, code)
			}
		})
	}
}

func TestHandler_FrameAndVolume(t *testing.T) {
	env := newTestEnv(t, "ws://127.0.0.1:1/ws")

	if rec := env.do(http.MethodPost, "/v1/frame", `{"image":"/9j/4AA="}`); rec.Code != http.StatusAccepted {
		t.Errorf("frame: expected 202, got %d", rec.Code)
	}

	rec := env.do(http.MethodPut, "/v1/volume", `{"volume":1.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("volume: expected 200, got %d", rec.Code)
	}
	var resp dto.VolumeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Volume != 1 {
		t.Errorf("expected clamped volume 1, got %v", resp.Volume)
	}
	if v := env.session.Player().Volume(); v != 1 {
		t.Errorf("player volume = %v", v)
	}
}

func TestHandler_EventStream(t *testing.T) {
	env := newTestEnv(t, startTextBackend(t))
	server := httptest.NewServer(env.echo)
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/surfaces/main/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	events := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
		close(events)
	}()

	deadline := time.Now().Add(time.Second)
	for env.hub.Subscribers("main") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if rec := env.do(http.MethodPut, "/v1/surfaces/main", `{"chat_capable":true}`); rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", rec.Code)
	}
	expectEvent(t, events, EventConnected)

	if rec := env.do(http.MethodPost, "/v1/text", `{"text":"hello"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("text: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	expectEvent(t, events, EventText)
}

func expectEvent(t *testing.T, events <-chan string, want EventType) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got, ok := <-events:
			if !ok {
				t.Fatalf("stream closed before %s", want)
			}
			if got == string(want) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}
