package shared

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewAPIError(t *testing.T) {
	err := NewAPIError("test_code", "test message")
	if err.Code != "test_code" {
		t.Errorf("expected code 'test_code', got '%s'", err.Code)
	}
	if err.Message != "test message" {
		t.Errorf("expected message 'test message', got '%s'", err.Message)
	}
	if err.Details != nil {
		t.Errorf("expected nil details, got %v", err.Details)
	}
}

func TestAPIError_WithDetails(t *testing.T) {
	err := NewAPIError("code", "message")
	details := map[string]string{"field": "value"}
	err = err.WithDetails(details)

	d, ok := err.Details.(map[string]string)
	if !ok {
		t.Fatal("expected details to be map[string]string")
	}
	if d["field"] != "value" {
		t.Errorf("expected field 'value', got '%s'", d["field"])
	}
}

func TestAPIError_ToHTTP(t *testing.T) {
	httpErr := NewAPIError("code", "message").ToHTTP(http.StatusBadRequest)
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, httpErr.Code)
	}
	msg, ok := httpErr.Message.(*APIError)
	if !ok {
		t.Fatal("expected message to be *APIError")
	}
	if msg.Code != "code" {
		t.Errorf("expected code 'code', got '%s'", msg.Code)
	}
}

func TestHelpers(t *testing.T) {
	assertHTTPError(t, BadRequest("bad", "bad request"), http.StatusBadRequest, "bad", "bad request")
	assertHTTPError(t, NotFound("notfound", "not found"), http.StatusNotFound, "notfound", "not found")
	assertHTTPError(t, Conflict("conflict", "conflict error"), http.StatusConflict, "conflict", "conflict error")
	assertHTTPError(t, TooManyRequests("slow", "slow down"), http.StatusTooManyRequests, "slow", "slow down")
	assertHTTPError(t, ServiceUnavailable("down", "down"), http.StatusServiceUnavailable, "down", "down")
	assertHTTPError(t, InternalError("internal", "internal error"), http.StatusInternalServerError, "internal", "internal error")
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not connected", ErrNotConnected, http.StatusServiceUnavailable, "not_connected"},
		{"wrapped not connected", fmt.Errorf("send: %w", ErrNotConnected), http.StatusServiceUnavailable, "not_connected"},
		{"cooldown", ErrCooldown, http.StatusTooManyRequests, "cooldown"},
		{"empty", ErrEmptyPayload, http.StatusBadRequest, "empty_payload"},
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"device", ErrDeviceUnavailable, http.StatusServiceUnavailable, "device_unavailable"},
		{"closed", ErrClosed, http.StatusConflict, "closed"},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := FromError(tt.err)
			if httpErr.Code != tt.status {
				t.Errorf("status = %d, want %d", httpErr.Code, tt.status)
			}
			apiErr := httpErr.Message.(*APIError)
			if apiErr.Code != tt.code {
				t.Errorf("code = %s, want %s", apiErr.Code, tt.code)
			}
		})
	}
}

func assertHTTPError(t *testing.T, err *echo.HTTPError, expectedStatus int, expectedCode, expectedMessage string) {
	t.Helper()
	if err.Code != expectedStatus {
		t.Errorf("expected status %d, got %d", expectedStatus, err.Code)
	}
	apiErr, ok := err.Message.(*APIError)
	if !ok {
		t.Fatal("expected message to be *APIError")
	}
	if apiErr.Code != expectedCode {
		t.Errorf("expected code '%s', got '%s'", expectedCode, apiErr.Code)
	}
	if apiErr.Message != expectedMessage {
		t.Errorf("expected message '%s', got '%s'", expectedMessage, apiErr.Message)
	}
}
