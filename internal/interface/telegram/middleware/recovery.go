// Package middleware contains Telegram bot middlewares for request processing.
package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers and converts them to user-friendly error
// messages. The bot must stay responsive even if one handler crashes.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// UserErrorMessage is the message sent to users when a panic occurs.
	UserErrorMessage string

	// Logger for panic reporting.
	Logger *logger.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig(log *logger.Logger) RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		UserErrorMessage: "❌ An error occurred. Please try again.",
		Logger:           log,
	}
}

// RecoveryResult describes what happened inside the wrapped handler.
type RecoveryResult struct {
	// Recovered reports whether a panic was caught.
	Recovered bool

	// UserMessage is the reply to send when a panic was caught.
	UserMessage string

	// Err is the handler's error when it returned normally.
	Err error
}

// RecoveryMiddleware recovers from panics in handlers.
type RecoveryMiddleware struct {
	config RecoveryConfig
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	return &RecoveryMiddleware{config: config}
}

// Run executes fn, converting any panic into a RecoveryResult.
func (m *RecoveryMiddleware) Run(ctx context.Context, telegramID int64, operation string, fn func() error) (result RecoveryResult) {
	defer func() {
		if r := recover(); r != nil {
			fields := []logger.Field{
				logger.Int64("telegram_id", telegramID),
				logger.Operation(operation),
				logger.String("panic", fmt.Sprintf("%v", r)),
				logger.Time("at", time.Now().UTC()),
			}
			if m.config.EnableStackTrace {
				fields = append(fields, logger.String("stack", string(debug.Stack())))
			}
			m.config.Logger.Error("panic recovered in handler", fields...)

			result = RecoveryResult{
				Recovered:   true,
				UserMessage: m.config.UserErrorMessage,
			}
		}
	}()

	return RecoveryResult{Err: fn()}
}
