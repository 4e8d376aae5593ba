package dto

type ErrorResponse struct {
	Code    string `json:"code" example:"not_connected"`
	Message string `json:"message" example:"websocket not connected"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}
