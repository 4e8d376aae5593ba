package transport

type Sender interface {
	Send(v any) error
	IsConnected() bool
}

type RealtimeSender interface {
	Sender
	SendRealtimeInput(audioB64, imageB64 string) error
	SendEndOfStream() error
	SendText(text string) error
}
