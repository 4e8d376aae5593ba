package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const sseKeepAliveInterval = 30 * time.Second

type eventStream struct {
	writer    http.ResponseWriter
	flusher   http.Flusher
	events    <-chan Event
	keepalive time.Duration
}

func newEventStream(w http.ResponseWriter, events <-chan Event, keepalive time.Duration) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, http.ErrNotSupported
	}
	if keepalive <= 0 {
		keepalive = sseKeepAliveInterval
	}
	return &eventStream{
		writer:    w,
		flusher:   flusher,
		events:    events,
		keepalive: keepalive,
	}, nil
}

func (s *eventStream) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-s.events:
			if !ok {
				return nil
			}
			if err := s.writeEvent(event); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.writeKeepAlive(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *eventStream) writeEvent(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := s.writer.Write([]byte("event: " + string(event.Type) + "\ndata: ")); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if _, err := s.writer.Write([]byte("\n\n")); err != nil {
		return err
	}

	s.flusher.Flush()
	return nil
}

func (s *eventStream) writeKeepAlive() error {
	if _, err := s.writer.Write([]byte(":keepalive\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
