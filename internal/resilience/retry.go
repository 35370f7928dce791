package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/xraph/binder/internal/logger"
)

// Retry runs an operation until it succeeds, fails permanently, or runs out
// of attempts. Delays grow exponentially between attempts.
type Retry struct {
	config RetryConfig
	log    logger.Logger

	mu    sync.Mutex
	stats RetryStats
}

// RetryConfig contains retry configuration.
type RetryConfig struct {
	Name         string        `yaml:"name"`
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`

	// Retryable reports whether err is worth another attempt. Nil retries
	// every error.
	Retryable func(err error) bool `yaml:"-"`
	Logger    logger.Logger        `yaml:"-"`
}

// DefaultRetryConfig returns three attempts starting at 100ms.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:         name,
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// RetryStats counts attempts across executions.
type RetryStats struct {
	Attempts  int64     `json:"attempts"`
	Failures  int64     `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
	LastRun   time.Time `json:"last_run"`
}

// RetryError is returned once every attempt failed.
type RetryError struct {
	Name       string
	Attempts   int
	TotalDelay time.Duration
	LastError  error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Name, e.Attempts, e.LastError)
}

func (e *RetryError) Unwrap() error {
	return e.LastError
}

// NewRetry creates a retrier. Missing limits fall back to DefaultRetryConfig.
func NewRetry(config RetryConfig) *Retry {
	defaults := DefaultRetryConfig(config.Name)
	if config.MaxAttempts < 1 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier < 1 {
		config.Multiplier = defaults.Multiplier
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}

	return &Retry{config: config, log: config.Logger}
}

// Execute runs fn until it succeeds. A non-retryable error is returned as is.
func (r *Retry) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var (
		lastError  error
		totalDelay time.Duration
	)

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		r.record(err)
		if err == nil {
			if attempt > 1 {
				r.log.Info("retry succeeded",
					logger.String("name", r.config.Name),
					logger.Int("attempts", attempt))
			}
			return nil
		}

		if r.config.Retryable != nil && !r.config.Retryable(err) {
			return err
		}
		lastError = err

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		totalDelay += delay
		r.log.Debug("retrying",
			logger.String("name", r.config.Name),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.log.Warn("retry failed",
		logger.String("name", r.config.Name),
		logger.Int("attempts", r.config.MaxAttempts),
		logger.Duration("total_delay", totalDelay),
		logger.Error(lastError))

	return &RetryError{
		Name:       r.config.Name,
		Attempts:   r.config.MaxAttempts,
		TotalDelay: totalDelay,
		LastError:  lastError,
	}
}

func (r *Retry) delay(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))

	// ±25%
	if r.config.Jitter {
		jitter := float64(delay) * 0.25
		delay += time.Duration(jitter * (2*rand.Float64() - 1))
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

func (r *Retry) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Attempts++
	r.stats.LastRun = time.Now()
	if err != nil {
		r.stats.Failures++
		r.stats.LastError = err.Error()
	}
}

// Stats returns the counters accumulated so far.
func (r *Retry) Stats() RetryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
