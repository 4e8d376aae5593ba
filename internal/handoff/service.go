package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vcaremind/voice-client/internal/shared"
)

const (
	aliveKey       = "voice:listener:%s:alive"
	controlChannel = "voice:listener:%s:control"

	DefaultAliveTTL = 15 * time.Second
)

type Command string

const (
	CommandResume Command = "resume"
	CommandPause  Command = "pause"
)

func (c Command) Valid() error {
	switch c {
	case CommandResume, CommandPause:
		return nil
	default:
		return fmt.Errorf("unknown listener command %q", string(c))
	}
}

// Service is the Redis side of the background listener handoff: a presence
// key the listener refreshes and a control channel the foreground app uses
// to hand the microphone over and take it back.
type Service struct {
	redis  *redis.Client
	device string
	log    *slog.Logger
}

func NewService(redisClient *redis.Client, device string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		redis:  redisClient,
		device: device,
		log:    log.With("component", "handoff", "device", device),
	}
}

func (s *Service) AliveKey() string {
	return fmt.Sprintf(aliveKey, s.device)
}

func (s *Service) ControlChannel() string {
	return fmt.Sprintf(controlChannel, s.device)
}

func (s *Service) Resume(ctx context.Context) error {
	return s.publish(ctx, CommandResume)
}

func (s *Service) Pause(ctx context.Context) error {
	return s.publish(ctx, CommandPause)
}

func (s *Service) publish(ctx context.Context, cmd Command) error {
	if err := s.redis.Publish(ctx, s.ControlChannel(), string(cmd)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", cmd, err)
	}
	s.log.Debug("published listener command", "command", cmd)
	return nil
}

func (s *Service) Alive(ctx context.Context) (bool, error) {
	n, err := s.redis.Exists(ctx, s.AliveKey()).Result()
	if err != nil {
		return false, fmt.Errorf("check listener presence: %w", err)
	}
	return n > 0, nil
}

func (s *Service) MarkAlive(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultAliveTTL
	}
	return s.redis.Set(ctx, s.AliveKey(), time.Now().Unix(), ttl).Err()
}

func (s *Service) MarkGone(ctx context.Context) error {
	return s.redis.Del(ctx, s.AliveKey()).Err()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Commands streams control commands until ctx is done. Unknown payloads are
// logged and skipped.
func (s *Service) Commands(ctx context.Context) (<-chan Command, error) {
	pubsub := s.redis.Subscribe(ctx, s.ControlChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.ControlChannel(), err)
	}

	out := make(chan Command, 8)
	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				s.log.Error("receive listener command", "error", err)
				return
			}

			cmd := Command(msg.Payload)
			if err := cmd.Valid(); err != nil {
				s.log.Warn("ignoring listener command", "error", err)
				continue
			}

			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// LastSeen returns when the listener last refreshed its presence key.
func (s *Service) LastSeen(ctx context.Context) (time.Time, error) {
	unix, err := s.redis.Get(ctx, s.AliveKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, shared.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}
