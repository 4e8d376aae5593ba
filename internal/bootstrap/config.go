package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vcaremind/voice-client/internal/audio"
	"github.com/vcaremind/voice-client/internal/connection"
	"github.com/vcaremind/voice-client/internal/coordinator"
	"github.com/vcaremind/voice-client/internal/notification"
)

type Config struct {
	WebSocketURL string `yaml:"ws_url"`
	ControlAddr  string `yaml:"control_addr"`
	GRPCAddr     string `yaml:"grpc_addr"`
	LogLevel     string `yaml:"log_level"`

	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`

	CaptureSampleRate  int     `yaml:"capture_sample_rate"`
	PlaybackSampleRate int     `yaml:"playback_sample_rate"`
	DeviceSampleRate   int     `yaml:"device_sample_rate"`
	ChunkSamples       int     `yaml:"chunk_samples"`
	PlaybackVolume     float64 `yaml:"playback_volume"`
	HalfDuplex         bool    `yaml:"half_duplex"`
	BargeIn            bool    `yaml:"barge_in"`
	AudioInput         string  `yaml:"audio_input"`
	AudioOutput        string  `yaml:"audio_output"`
	PromptsDir         string  `yaml:"prompts_dir"`

	NotificationCooldown time.Duration `yaml:"notification_cooldown"`
	NotificationAutoPlay bool          `yaml:"voice_notification_autoplay"`

	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	DeviceID        string        `yaml:"device_id"`
	BackgroundGrace time.Duration `yaml:"background_grace"`
	HandoffPoll     time.Duration `yaml:"handoff_poll"`
}

func defaultConfig() *Config {
	return &Config{
		WebSocketURL: "ws://localhost:8000/ws",
		ControlAddr:  ":8080",
		GRPCAddr:     ":50051",
		LogLevel:     "info",

		HeartbeatInterval:    connection.DefaultHeartbeatInterval,
		ReadTimeout:          connection.DefaultReadTimeout,
		ReconnectBaseDelay:   connection.DefaultReconnectBase,
		ReconnectMaxDelay:    connection.DefaultReconnectMaxDelay,
		ReconnectMaxAttempts: connection.DefaultReconnectAttempts,

		CaptureSampleRate:  audio.DefaultCaptureRate,
		PlaybackSampleRate: audio.DefaultPlaybackRate,
		ChunkSamples:       audio.DefaultChunkSamples,
		PlaybackVolume:     1.0,
		BargeIn:            true,

		NotificationCooldown: notification.DefaultCooldown,
		NotificationAutoPlay: true,

		DeviceID:        "default",
		BackgroundGrace: coordinator.DefaultGrace,
		HandoffPoll:     5 * time.Second,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by VOICE_CONFIG, then the environment. A .env file in the working
// directory is loaded first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path := os.Getenv("VOICE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.WebSocketURL = getEnv("VOICE_WS_URL", c.WebSocketURL)
	c.ControlAddr = getEnv("CONTROL_ADDR", c.ControlAddr)
	c.GRPCAddr = getEnv("GRPC_ADDR", c.GRPCAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.HeartbeatInterval = getEnvDuration("HEARTBEAT_INTERVAL", c.HeartbeatInterval)
	c.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.ReadTimeout)
	c.ReconnectBaseDelay = getEnvDuration("RECONNECT_BASE_DELAY", c.ReconnectBaseDelay)
	c.ReconnectMaxDelay = getEnvDuration("RECONNECT_MAX_DELAY", c.ReconnectMaxDelay)
	c.ReconnectMaxAttempts = getEnvInt("RECONNECT_MAX_ATTEMPTS", c.ReconnectMaxAttempts)

	c.CaptureSampleRate = getEnvInt("CAPTURE_SAMPLE_RATE", c.CaptureSampleRate)
	c.PlaybackSampleRate = getEnvInt("PLAYBACK_SAMPLE_RATE", c.PlaybackSampleRate)
	c.DeviceSampleRate = getEnvInt("DEVICE_SAMPLE_RATE", c.DeviceSampleRate)
	c.ChunkSamples = getEnvInt("CHUNK_SAMPLES", c.ChunkSamples)
	c.PlaybackVolume = getEnvFloat("PLAYBACK_VOLUME", c.PlaybackVolume)
	c.HalfDuplex = getEnvBool("HALF_DUPLEX", c.HalfDuplex)
	c.BargeIn = getEnvBool("BARGE_IN", c.BargeIn)
	c.AudioInput = getEnv("AUDIO_INPUT", c.AudioInput)
	c.AudioOutput = getEnv("AUDIO_OUTPUT", c.AudioOutput)
	c.PromptsDir = getEnv("PROMPTS_DIR", c.PromptsDir)

	c.NotificationCooldown = getEnvDuration("NOTIFICATION_COOLDOWN", c.NotificationCooldown)
	c.NotificationAutoPlay = getEnvBool("VOICE_NOTIFICATION_AUTOPLAY", c.NotificationAutoPlay)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.DeviceID = getEnv("DEVICE_ID", c.DeviceID)
	c.BackgroundGrace = getEnvDuration("BACKGROUND_GRACE", c.BackgroundGrace)
	c.HandoffPoll = getEnvDuration("HANDOFF_POLL", c.HandoffPoll)
}

func (c *Config) Validate() error {
	if c.WebSocketURL == "" {
		return errors.New("ws url is required")
	}
	if !strings.HasPrefix(c.WebSocketURL, "ws://") && !strings.HasPrefix(c.WebSocketURL, "wss://") {
		return fmt.Errorf("ws url %q must use ws:// or wss://", c.WebSocketURL)
	}
	if c.CaptureSampleRate <= 0 || c.PlaybackSampleRate <= 0 {
		return errors.New("sample rates must be positive")
	}
	if c.ChunkSamples <= 0 {
		return errors.New("chunk samples must be positive")
	}
	if c.ReconnectMaxAttempts < 0 {
		return errors.New("reconnect max attempts must not be negative")
	}
	if c.ReconnectBaseDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return errors.New("reconnect delays must be positive and max must not be below base")
	}
	return nil
}

// RedisEnabled reports whether the background listener handoff is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
