package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotConnected      = errors.New("websocket not connected")
	ErrEmptyPayload      = errors.New("empty payload")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrCooldown          = errors.New("request cooldown active")
	ErrClosed            = errors.New("closed")
	ErrNotFound          = errors.New("not found")
)

type APIError struct {
	Code    string `json:"code" example:"invalid_request"`
	Message string `json:"message" example:"Invalid request body"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadRequest)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}

func Conflict(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusConflict)
}

func TooManyRequests(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusTooManyRequests)
}

func ServiceUnavailable(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusServiceUnavailable)
}

func InternalError(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusInternalServerError)
}

// FromError maps pipeline sentinel errors onto HTTP errors for the control API.
func FromError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotConnected):
		return ServiceUnavailable("not_connected", err.Error())
	case errors.Is(err, ErrCooldown):
		return TooManyRequests("cooldown", err.Error())
	case errors.Is(err, ErrEmptyPayload):
		return BadRequest("empty_payload", err.Error())
	case errors.Is(err, ErrNotFound):
		return NotFound("not_found", err.Error())
	case errors.Is(err, ErrDeviceUnavailable):
		return ServiceUnavailable("device_unavailable", err.Error())
	case errors.Is(err, ErrClosed):
		return Conflict("closed", err.Error())
	default:
		return InternalError("internal_error", err.Error())
	}
}
