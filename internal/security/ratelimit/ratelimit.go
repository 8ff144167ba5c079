// Package ratelimit implements per action sliding window limits with optional temporary blocks.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Action names a rate limited operation.
type Action string

const (
	ActionLogin             Action = "login"
	ActionRegister          Action = "register"
	ActionEmailVerification Action = "emailVerification"
	ActionPasswordReset     Action = "passwordReset"
	ActionOTPRequest        Action = "otpRequest"
	ActionFormSubmission    Action = "formSubmission"
)

// Config bounds the attempts allowed for an action. BlockDuration zero disables blocking.
type Config struct {
	MaxAttempts   int           `yaml:"maxAttempts"`
	Window        time.Duration `yaml:"window"`
	BlockDuration time.Duration `yaml:"blockDuration"`
}

// resetAfter is the span a rejection lasts.
func (c Config) resetAfter() time.Duration {
	if c.BlockDuration > 0 {
		return c.BlockDuration
	}
	return c.Window
}

// Result is the outcome of a single check.
type Result struct {
	Allowed           bool      `json:"allowed"`
	RemainingAttempts int       `json:"remainingAttempts"`
	ResetTime         time.Time `json:"resetTime"`
	IsBlocked         bool      `json:"isBlocked"`
}

// DefaultConfigs returns the built in limits per action.
func DefaultConfigs() map[Action]Config {
	return map[Action]Config{
		ActionLogin:             {MaxAttempts: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
		ActionRegister:          {MaxAttempts: 3, Window: time.Hour, BlockDuration: time.Hour},
		ActionEmailVerification: {MaxAttempts: 10, Window: time.Hour},
		ActionPasswordReset:     {MaxAttempts: 3, Window: time.Hour, BlockDuration: 2 * time.Hour},
		ActionOTPRequest:        {MaxAttempts: 5, Window: time.Hour},
		ActionFormSubmission:    {MaxAttempts: 20, Window: time.Minute},
	}
}

// Store keeps attempt history. Hit records an attempt, Peek only evaluates.
type Store interface {
	Hit(ctx context.Context, key string, cfg Config, now time.Time) (Result, error)
	Peek(ctx context.Context, key string, cfg Config, now time.Time) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Cleaner is implemented by stores that need periodic pruning.
type Cleaner interface {
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// Limiter applies action configs on top of a Store.
type Limiter struct {
	store   Store
	configs map[Action]Config
	now     func() time.Time
	logger  zerolog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithConfig overrides the config of one action.
func WithConfig(action Action, cfg Config) Option {
	return func(l *Limiter) { l.configs[action] = cfg }
}

// WithLogger sets the logger used for limit events.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter. A nil store falls back to an in-memory store.
func New(store Store, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:   store,
		configs: DefaultConfigs(),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConfigFor returns the config of action, or the form submission config for unknown actions.
func (l *Limiter) ConfigFor(action Action) Config {
	if cfg, ok := l.configs[action]; ok {
		return cfg
	}
	return l.configs[ActionFormSubmission]
}

// FullKey is the store key for an identifier under an action.
func FullKey(action Action, key string) string {
	return fmt.Sprintf("%s:%s", action, key)
}

// Check records an attempt for key under action and reports whether it is allowed.
func (l *Limiter) Check(ctx context.Context, key string, action Action) (Result, error) {
	return l.CheckWith(ctx, key, action, l.ConfigFor(action))
}

// CheckWith is Check with an explicit config.
func (l *Limiter) CheckWith(ctx context.Context, key string, action Action, cfg Config) (Result, error) {
	res, err := l.store.Hit(ctx, FullKey(action, key), cfg, l.now())
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check for %s: %w", action, err)
	}
	if !res.Allowed {
		l.logger.Warn().
			Str("event", "rate_limit_exceeded").
			Str("action", string(action)).
			Str("key", key).
			Bool("blocked", res.IsBlocked).
			Time("resetTime", res.ResetTime).
			Msg("Rate limit exceeded")
	}
	return res, nil
}

// Remaining reports the attempts left. Like Check it consumes an attempt.
func (l *Limiter) Remaining(ctx context.Context, key string, action Action) (int, error) {
	res, err := l.Check(ctx, key, action)
	if err != nil {
		return 0, err
	}
	return res.RemainingAttempts, nil
}

// Status evaluates the current state without recording an attempt.
func (l *Limiter) Status(ctx context.Context, key string, action Action) (Result, error) {
	res, err := l.store.Peek(ctx, FullKey(action, key), l.ConfigFor(action), l.now())
	if err != nil {
		return Result{}, fmt.Errorf("rate limit status for %s: %w", action, err)
	}
	return res, nil
}

// Reset forgets every attempt for key under action.
func (l *Limiter) Reset(ctx context.Context, key string, action Action) error {
	if err := l.store.Reset(ctx, FullKey(action, key)); err != nil {
		return fmt.Errorf("rate limit reset for %s: %w", action, err)
	}
	return nil
}

// Cleanup prunes expired history when the store supports it.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	c, ok := l.store.(Cleaner)
	if !ok {
		return 0, nil
	}
	return c.Cleanup(ctx, l.now())
}
