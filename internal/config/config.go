package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	HTTPHost      string `env:"HTTP_HOST"`
	HTTPPort      string `env:"HTTP_PORT" default:"8000"`
	BroadcastHost string `env:"BROADCAST_HOST" default:"localhost"`
	BroadcastPort string `env:"BROADCAST_PORT" default:"8765"`
	MetricsPort   string `env:"METRICS_PORT"`

	// SendEmptyLines fans empty operator lines out to clients (without a
	// "Sent" confirmation). When false, empty lines are skipped entirely.
	SendEmptyLines bool `env:"SEND_EMPTY_LINES" default:"true"`

	// WriteTimeout bounds a single send to one client. Zero means no deadline.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" default:"0s"`

	Prompt    string `env:"PROMPT" default:"Enter text to read: "`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	ports := map[string]string{
		"HTTP_PORT":      c.HTTPPort,
		"BROADCAST_PORT": c.BroadcastPort,
	}
	if c.MetricsPort != "" {
		ports["METRICS_PORT"] = c.MetricsPort
	}
	for name, value := range ports {
		if err := validatePort(value); err != nil {
			return fmt.Errorf("%s %w", name, err)
		}
	}

	if c.HTTPPort == c.BroadcastPort && sameHost(c.HTTPHost, c.BroadcastHost) {
		return errors.New("HTTP_PORT and BROADCAST_PORT must differ")
	}
	if c.MetricsPort != "" && (c.MetricsPort == c.HTTPPort || c.MetricsPort == c.BroadcastPort) {
		return errors.New("METRICS_PORT must differ from HTTP_PORT and BROADCAST_PORT")
	}

	if c.WriteTimeout < 0 {
		return errors.New("WRITE_TIMEOUT must not be negative")
	}

	return nil
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, c.HTTPPort)
}

func (c *Config) BroadcastAddr() string {
	return net.JoinHostPort(c.BroadcastHost, c.BroadcastPort)
}

// MetricsAddr returns an empty string when the metrics listener is disabled.
func (c *Config) MetricsAddr() string {
	if c.MetricsPort == "" {
		return ""
	}
	return net.JoinHostPort(c.HTTPHost, c.MetricsPort)
}

// SocketURL is the address the served page connects to.
func (c *Config) SocketURL() string {
	return "ws://" + c.BroadcastAddr()
}

func validatePort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be numeric, got %q", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535, got %d", port)
	}
	return nil
}

// sameHost treats the wildcard host as overlapping every other host.
func sameHost(a, b string) bool {
	return a == "" || b == "" || a == b
}
