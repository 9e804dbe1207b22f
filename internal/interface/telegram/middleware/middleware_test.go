package middleware

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

func TestAdminGate_PublicCommandsOpenToEveryone(t *testing.T) {
	gate := NewAdminGate(DefaultAdminGateConfig([]int64{1}))

	for _, cmd := range []string{"start", "stats", "leaderboards", "get_referral_link"} {
		res := gate.CheckCommand(999, cmd)
		assert.True(t, res.Allowed, "command %s must be public", cmd)
	}
}

func TestAdminGate_AdminCommandsRestricted(t *testing.T) {
	gate := NewAdminGate(DefaultAdminGateConfig([]int64{1, 2}))

	for _, cmd := range []string{"report", "export", "reset", "reset_weekly", "weekly_archives"} {
		allowed := gate.CheckCommand(1, cmd)
		assert.True(t, allowed.Allowed, "admin must pass for %s", cmd)

		denied := gate.CheckCommand(999, cmd)
		assert.False(t, denied.Allowed, "non-admin must be denied for %s", cmd)
		assert.Equal(t, "❌ Admin only.", denied.DeniedMessage)
	}
}

func TestAdminGate_CallbacksDeniedSilently(t *testing.T) {
	gate := NewAdminGate(DefaultAdminGateConfig([]int64{1}))

	for _, data := range []string{"confirm_reset", "cancel_reset", "archive_2025-W28"} {
		res := gate.CheckCallback(999, data)
		assert.False(t, res.Allowed)
		assert.Empty(t, res.DeniedMessage)

		assert.True(t, gate.CheckCallback(1, data).Allowed)
	}

	// Non-admin callbacks pass for everyone.
	assert.True(t, gate.CheckCallback(999, "my_stats").Allowed)
	assert.True(t, gate.CheckCallback(999, "amb_done_100").Allowed)
}

func TestAdminGate_IsAdmin(t *testing.T) {
	gate := NewAdminGate(DefaultAdminGateConfig([]int64{7}))

	assert.True(t, gate.IsAdmin(7))
	assert.False(t, gate.IsAdmin(8))
}

func TestTelegramIDContext(t *testing.T) {
	ctx := ContextWithTelegramID(context.Background(), 42)

	id, ok := TelegramIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = TelegramIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestRecovery_CatchesPanic(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig(testLogger()))

	res := m.Run(context.Background(), 42, "test_op", func() error {
		panic("boom")
	})

	assert.True(t, res.Recovered)
	assert.Equal(t, "❌ An error occurred. Please try again.", res.UserMessage)
	assert.NoError(t, res.Err)
}

func TestRecovery_PassesThroughErrors(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig(testLogger()))
	wantErr := errors.New("handler failed")

	res := m.Run(context.Background(), 42, "test_op", func() error {
		return wantErr
	})

	assert.False(t, res.Recovered)
	assert.ErrorIs(t, res.Err, wantErr)
	assert.Empty(t, res.UserMessage)
}

func TestRecovery_CleanRun(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig(testLogger()))

	res := m.Run(context.Background(), 42, "test_op", func() error { return nil })

	assert.False(t, res.Recovered)
	assert.NoError(t, res.Err)
}
