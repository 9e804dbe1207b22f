// Package middleware contains Telegram bot middlewares for request processing.
// These middlewares form a chain that processes every incoming update before
// it reaches the handler.
package middleware

import (
	"context"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT KEYS
// Used to pass data through the request context.
// ══════════════════════════════════════════════════════════════════════════════

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// TelegramIDContextKey is the context key for the Telegram user ID.
	TelegramIDContextKey contextKey = "telegram_id"

	// IsAdminContextKey is the context key for the admin flag.
	IsAdminContextKey contextKey = "is_admin"
)

// ContextWithTelegramID stores the Telegram user ID in the context.
func ContextWithTelegramID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, TelegramIDContextKey, id)
}

// TelegramIDFromContext retrieves the Telegram user ID from the context.
func TelegramIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(TelegramIDContextKey).(int64)
	return id, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN GATE
// All tracking commands are public; only the operator surface (/report,
// /export, /reset, /reset_weekly, /weekly_archives and their callbacks) is
// restricted to the configured allow-list.
// ══════════════════════════════════════════════════════════════════════════════

// AdminGateConfig holds configuration for the admin gate.
type AdminGateConfig struct {
	// AdminIDs is the allow-list of operator Telegram IDs.
	AdminIDs []int64

	// AdminCommands are commands requiring an allow-listed caller.
	AdminCommands map[string]bool

	// AdminCallbackPrefixes are callback data prefixes requiring an
	// allow-listed caller.
	AdminCallbackPrefixes []string

	// DeniedMessage is sent to non-admins who try an admin command.
	DeniedMessage string
}

// DefaultAdminGateConfig returns the standard gate configuration.
func DefaultAdminGateConfig(adminIDs []int64) AdminGateConfig {
	return AdminGateConfig{
		AdminIDs: adminIDs,
		AdminCommands: map[string]bool{
			"report":          true,
			"export":          true,
			"reset":           true,
			"reset_weekly":    true,
			"weekly_archives": true,
		},
		AdminCallbackPrefixes: []string{
			"confirm_reset",
			"cancel_reset",
			"archive_",
		},
		DeniedMessage: "❌ Admin only.",
	}
}

// AdminGate restricts operator commands to the allow-list.
type AdminGate struct {
	config AdminGateConfig
	admins map[int64]bool
}

// NewAdminGate creates a new admin gate.
func NewAdminGate(config AdminGateConfig) *AdminGate {
	admins := make(map[int64]bool, len(config.AdminIDs))
	for _, id := range config.AdminIDs {
		admins[id] = true
	}
	return &AdminGate{config: config, admins: admins}
}

// GateResult is the outcome of a gate check.
type GateResult struct {
	// Allowed reports whether processing should continue.
	Allowed bool

	// DeniedMessage is the reply to send when not allowed. Empty means
	// deny silently (used for callbacks, to avoid spam).
	DeniedMessage string
}

// IsAdmin reports whether the identity is on the allow-list.
func (g *AdminGate) IsAdmin(telegramID int64) bool {
	return g.admins[telegramID]
}

// CheckCommand gates one command invocation.
func (g *AdminGate) CheckCommand(telegramID int64, command string) GateResult {
	if !g.config.AdminCommands[command] {
		return GateResult{Allowed: true}
	}
	if g.IsAdmin(telegramID) {
		return GateResult{Allowed: true}
	}
	return GateResult{Allowed: false, DeniedMessage: g.config.DeniedMessage}
}

// CheckCallback gates one callback invocation. Denied callbacks are dropped
// without a reply.
func (g *AdminGate) CheckCallback(telegramID int64, data string) GateResult {
	restricted := false
	for _, prefix := range g.config.AdminCallbackPrefixes {
		if strings.HasPrefix(data, prefix) {
			restricted = true
			break
		}
	}
	if !restricted || g.IsAdmin(telegramID) {
		return GateResult{Allowed: true}
	}
	return GateResult{Allowed: false}
}
