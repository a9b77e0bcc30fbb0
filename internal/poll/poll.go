// Package poll waits for remote work to reach a terminal state.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrExhausted is returned when MaxAttempts checks ran without the remote
// side finishing.
var ErrExhausted = errors.New("poll: gave up waiting")

// Config bounds a wait. A Multiplier of 1 gives a fixed interval.
type Config struct {
	Interval    time.Duration `mapstructure:"interval"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	// MaxAttempts caps the number of re-checks. Zero means no cap.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Timeout caps the whole wait. Zero means no cap.
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = c.Interval
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CheckFunc inspects the remote state once and reports whether it is terminal.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Poller is safe for concurrent use; each Wait keeps its own backoff state.
type Poller struct {
	cfg   Config
	sleep SleepFunc
}

func New(cfg Config, sleep SleepFunc) *Poller {
	cfg.applyDefaults()
	if sleep == nil {
		sleep = Sleep
	}
	return &Poller{cfg: cfg, sleep: sleep}
}

// Wait sleeps and then calls check, repeating until check reports done,
// returns an error, the attempt budget runs out or ctx ends. The caller has
// already observed a non-terminal state, so the first action is a sleep.
func (p *Poller) Wait(ctx context.Context, check CheckFunc) error {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.cfg.Interval,
		RandomizationFactor: 0,
		Multiplier:          p.cfg.Multiplier,
		MaxInterval:         p.cfg.MaxInterval,
	}
	b.Reset()

	for attempt := 1; p.cfg.MaxAttempts == 0 || attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := p.sleep(ctx, b.NextBackOff()); err != nil {
			return err
		}
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return ErrExhausted
}
