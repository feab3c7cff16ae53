package config

import (
	"time"
)

// RateLimitConfig defines the token bucket applied to the public
// schedule endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads environment variables and clamps them to
// usable values.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Capacity:       atoiDef(getenv("RATE_LIMIT_CAPACITY", ""), 60),
		RefillTokens:   atoiDef(getenv("RATE_LIMIT_REFILL_TOKENS", ""), 1),
		RefillInterval: parseDurDef(getenv("RATE_LIMIT_REFILL_INTERVAL", ""), time.Second),
		TTL:            parseDurDef(getenv("RATE_LIMIT_TTL", ""), 10*time.Minute),
		KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
		Debug:          getenv("RATE_LIMIT_DEBUG", "false") == "true",
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	minTTL := 5 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	if n := atoi(s); n != 0 {
		return n
	}
	return d
}

func parseDurDef(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
