package ratelimit

import (
	"context"
	"time"

	"ChurchLedger/internal/config"
)

// Limiter counts hits per key in fixed windows. The first hit of a window
// sets the counter to 1; a hit is refused once the counter exceeds Max.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Cleanup(ctx context.Context) error
}

type Config struct {
	Max    int
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Max <= 0 {
		c.Max = config.DefaultRateLimitMax
	}
	if c.Window <= 0 {
		c.Window = config.DefaultRateLimitReset
	}
	return c
}

type counter struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// hit advances c for a request at now and reports whether it is allowed.
func (c *counter) hit(now time.Time, cfg Config) bool {
	if !now.Before(c.ResetAt) {
		c.Count = 1
		c.ResetAt = now.Add(cfg.Window)
		return true
	}
	c.Count++
	return c.Count <= cfg.Max
}
