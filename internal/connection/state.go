package connection

import (
	"time"

	"github.com/vcaremind/voice-client/internal/transport"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

type Retry struct {
	Attempt int
	Delay   time.Duration
	Jitter  time.Duration
}

func (r Retry) Total() time.Duration {
	return r.Delay + r.Jitter
}

type Callbacks struct {
	OnConnected          func()
	OnDisconnected       func(code int, reason string)
	OnError              func(err error)
	OnMessage            func(resp *transport.Response)
	OnMalformed          func(raw []byte, err error)
	OnStateChange        func(state State)
	OnReconnectScheduled func(retry Retry)
}
