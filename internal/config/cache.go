package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the Redis response cache placed in
// front of the public session listings.  TTL is kept short because the
// active-session list changes whenever a broadcast starts or ends.
// KeyStrategy selects which request parts form the key (route,
// method_route, method_route_query or route_query).
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables with defaults.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      map[string]bool{},
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       getenv("CACHE_PREFIX", "live:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    for _, m := range strings.Split(getenv("CACHE_METHODS", "GET"), ",") {
        if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
            cfg.Methods[m] = true
        }
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 5 * time.Second
    }
    return cfg
}
