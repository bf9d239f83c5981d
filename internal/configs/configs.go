/*
Package configs is responsible for loading and parsing the application's
configuration settings.

Both binaries read their settings from environment variables with the
GABBER_ prefix; every value has a workable development default, so a bare
`gabberd` and a bare `gabber` find each other on localhost.
*/
package configs

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ClientConfig contains all configuration for the chat client binaries.
type ClientConfig struct {
	// ServerURL is the well-known chat endpoint, fixed for the process.
	ServerURL string `env:"GABBER_SERVER_URL" envDefault:"ws://127.0.0.1:6660/v1.0/chat"`

	// Room is the single room the client occupies.
	Room string `env:"GABBER_ROOM" envDefault:"Demo"`

	// Nickname preset; when empty the client prompts for one.
	Nickname string `env:"GABBER_NICKNAME"`

	// LogFile receives client logs; empty discards them (the terminal
	// belongs to the UI).
	LogFile string `env:"GABBER_LOG_FILE"`

	// Debug lowers the log level to debug.
	Debug bool `env:"GABBER_DEBUG"`
}

// ServerConfig contains all configuration for the dev server.
type ServerConfig struct {
	Environment string `env:"GABBER_ENV" envDefault:"development"`
	Port        int    `env:"GABBER_PORT" envDefault:"6660"`

	// AllowedOrigins restricts browser connections outside development.
	AllowedOrigins []string `env:"GABBER_ALLOWED_ORIGINS" envSeparator:","`

	// MaxRooms bounds room creation; zero means unlimited.
	MaxRooms int `env:"GABBER_MAX_ROOMS"`

	// MaxHistory is the number of room messages replayed to a joiner.
	MaxHistory int `env:"GABBER_MAX_HISTORY" envDefault:"15"`

	// MaxIdle disconnects chatters idle beyond this many seconds; zero
	// disables the timeout.
	MaxIdle int `env:"GABBER_MAX_IDLE"`

	// DatabaseDSN enables the Postgres message archive when set.
	DatabaseDSN string `env:"GABBER_DATABASE_URL"`
}

// LoadClient parses the client configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse client env: %w", err)
	}
	return cfg, nil
}

// LoadServer parses and validates the server configuration from the
// environment.
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse server env: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the valid range", cfg.Port)
	}
	if cfg.MaxHistory < 0 {
		return nil, fmt.Errorf("max history must not be negative, got %d", cfg.MaxHistory)
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs with development
// conveniences (console logs, permissive origins).
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}
