package bot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/amuthap/wedding-automation/internal/config"
)

// Pacer is consulted between consecutive gateway dispatches.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }

// DelayPacer sleeps a fixed interval.
type DelayPacer struct {
	Delay time.Duration
}

func (p DelayPacer) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RatePacer allows a token budget of sends per second.
type RatePacer struct {
	limiter *rate.Limiter
}

func NewRatePacer(perSecond float64, burst int) *RatePacer {
	if burst < 1 {
		burst = 1
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NewPacer builds the pacer selected by the pacing config.
func NewPacer(cfg config.PacingConfig) (Pacer, error) {
	switch cfg.Mode {
	case "", "delay":
		return DelayPacer{Delay: cfg.Delay.Duration}, nil
	case "rate":
		return NewRatePacer(cfg.Rate, cfg.Burst), nil
	default:
		return nil, fmt.Errorf("unknown pacing mode %q", cfg.Mode)
	}
}
