// Package pacing provides human-like delays between browser actions.
package pacing

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer pauses between input actions.
type Pacer interface {
	// Pause blocks for a duration in [min, max] or until ctx is done.
	Pause(ctx context.Context, min, max time.Duration) error
}

// Config scales the delays of a Random pacer.
type Config struct {
	Enabled bool    `mapstructure:"enabled"`
	Scale   float64 `mapstructure:"scale"` // multiplier applied to every delay
}

// New returns a Random pacer when enabled, otherwise None.
func New(cfg Config) Pacer {
	if !cfg.Enabled {
		return None{}
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}
	return &Random{scale: scale}
}

// Random sleeps for a uniformly random duration.
type Random struct {
	scale float64
}

func (r *Random) Pause(ctx context.Context, min, max time.Duration) error {
	d := Jitter(min, max)
	d = time.Duration(float64(d) * r.scale)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// None never waits. It still reports cancellation.
type None struct{}

func (None) Pause(ctx context.Context, _, _ time.Duration) error {
	return ctx.Err()
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}
