// Package timeouts holds the deadlines applied to database calls made while
// serving requests. Values are set once at startup and read concurrently.
package timeouts

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Defaults apply until Configure sets a positive value.
const (
	DefaultPing  = 2 * time.Second
	DefaultStore = 5 * time.Second
)

var ping, store atomic.Int64

func init() { Reset() }

// Ping is the deadline for a health check ping.
func Ping() time.Duration { return time.Duration(ping.Load()) }

// Store is the deadline for reading or writing a single record.
func Store() time.Duration { return time.Duration(store.Load()) }

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping  time.Duration
	Store time.Duration
}

// Configure applies the positive fields of cfg.
func Configure(cfg Config) {
	if cfg.Ping > 0 {
		ping.Store(int64(cfg.Ping))
	}
	if cfg.Store > 0 {
		store.Store(int64(cfg.Store))
	}
}

// Reset restores the defaults.
func Reset() {
	ping.Store(int64(DefaultPing))
	store.Store(int64(DefaultStore))
}

// WithTimeout derives a context bounded by timeout. Its cancel func logs a
// warning naming operation if the deadline was hit.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
