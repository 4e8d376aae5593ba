package dto

type SurfaceRequest struct {
	ChatCapable bool `json:"chat_capable" example:"true"`
}

type SurfaceResponse struct {
	Name          string `json:"name" example:"main"`
	ChatCapable   bool   `json:"chat_capable" example:"true"`
	ChatAvailable bool   `json:"chat_available" example:"true"`
}

type BackgroundRequest struct {
	Running bool `json:"running" example:"true"`
}

type TextRequest struct {
	Text string `json:"text" example:"What time is my next appointment?"`
}

type FrameRequest struct {
	Image string `json:"image" example:"/9j/4AAQSkZJRgABAQ..."`
}

type VolumeRequest struct {
	Volume float64 `json:"volume" example:"0.8"`
}

type VolumeResponse struct {
	Volume float64 `json:"volume" example:"0.8"`
}

type AnnounceRequest struct {
	Prompt string `json:"prompt" example:"connection_lost"`
}

type VoiceNotificationRequest struct {
	Text string `json:"text" example:"Time to take your blood pressure tablet"`
	Type string `json:"type,omitempty" example:"reminder"`
}

type VoiceNotificationResponse struct {
	RequestID string `json:"request_id" example:"vn_4f8a..."`
}

type FetchNotificationsRequest struct {
	Params map[string]any `json:"params,omitempty" swaggertype:"object"`
}

type MarkReadRequest struct {
	IDs []string `json:"ids" example:"n_1,n_2"`
}

type AcceptedResponse struct {
	Status string `json:"status" example:"accepted"`
}
