package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Reserved HTTP paths that the WebSocket endpoint must not shadow.
const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

type Config struct {
	Port           string        `env:"PORT" default:"8080"`
	WSPath         string        `env:"WS_PATH" default:"/"`
	WelcomeMessage string        `env:"WELCOME_MESSAGE" default:"Willkommen beim WebSocket-Server! Du bist jetzt verbunden."`
	RelayPrefix    string        `env:"RELAY_PREFIX" default:"Client sagt: "`
	SendTimeout    time.Duration `env:"SEND_TIMEOUT" default:"5s"`
	SendBuffer     int           `env:"SEND_BUFFER" default:"64"`
	PingInterval   time.Duration `env:"PING_INTERVAL" default:"54s"`
	PongWait       time.Duration `env:"PONG_WAIT" default:"60s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE" default:"65536"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS"`
	LogLevel       string        `env:"LOG_LEVEL" default:"info"`
	LogFormat      string        `env:"LOG_FORMAT" default:"text"`
}

// Load reads the configuration from the environment, after merging an
// optional .env file from the working directory.
func Load() (*Config, error) {
	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	if !strings.HasPrefix(cfg.WSPath, "/") {
		return fmt.Errorf("WS_PATH must start with /, got %q", cfg.WSPath)
	}
	if cfg.WSPath == HealthPath || cfg.WSPath == MetricsPath {
		return fmt.Errorf("WS_PATH must not be %s", cfg.WSPath)
	}

	durations := map[string]time.Duration{
		"SEND_TIMEOUT":  cfg.SendTimeout,
		"PING_INTERVAL": cfg.PingInterval,
		"PONG_WAIT":     cfg.PongWait,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.PingInterval >= cfg.PongWait {
		return errors.New("PING_INTERVAL must be shorter than PONG_WAIT")
	}

	if cfg.SendBuffer < 1 {
		return errors.New("SEND_BUFFER must be at least 1")
	}
	if cfg.MaxMessageSize < 1 {
		return errors.New("MAX_MESSAGE_SIZE must be at least 1")
	}

	return nil
}
