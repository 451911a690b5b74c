package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// RoomProviderConfig describes how to reach the SFU control plane and how
// rooms and participant tokens are shaped.
type RoomProviderConfig struct {
	URL             string        `env:"ROOM_PROVIDER_URL"`
	APIKey          string        `env:"ROOM_PROVIDER_API_KEY"`
	APISecret       string        `env:"ROOM_PROVIDER_API_SECRET"`
	Timeout         time.Duration `env:"ROOM_PROVIDER_TIMEOUT" envDefault:"5s"`
	EmptyTimeout    time.Duration `env:"ROOM_EMPTY_TIMEOUT" envDefault:"10m"`
	MaxParticipants int           `env:"ROOM_MAX_PARTICIPANTS" envDefault:"0"`
	TokenTTL        time.Duration `env:"ROOM_TOKEN_TTL" envDefault:"6h"`
}

// LoadRoomProviderConfig parses ROOM_* variables.  URL and credentials are
// required since no token can be issued without them.
func LoadRoomProviderConfig() (RoomProviderConfig, error) {
	var cfg RoomProviderConfig
	if err := env.Parse(&cfg); err != nil {
		return RoomProviderConfig{}, fmt.Errorf("parse room provider env: %w", err)
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	if cfg.URL == "" {
		return RoomProviderConfig{}, fmt.Errorf("ROOM_PROVIDER_URL is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return RoomProviderConfig{}, fmt.Errorf("ROOM_PROVIDER_API_KEY and ROOM_PROVIDER_API_SECRET are required")
	}
	if cfg.MaxParticipants < 0 {
		return RoomProviderConfig{}, fmt.Errorf("ROOM_MAX_PARTICIPANTS must not be negative")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 6 * time.Hour
	}
	return cfg, nil
}
