package command

import (
	"context"

	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET ALL COMMAND
// Wipes every tracking table: ambassadors, referral relationships, contest
// referrals, engagement counters, and the winner archive. The confirmation
// flow lives in the interface layer; by the time this handler runs the
// operator has already confirmed.
// ══════════════════════════════════════════════════════════════════════════════

// Resetter clears all tracking state in one atomic operation.
type Resetter interface {
	ResetAll(ctx context.Context) error
}

// ResetAllCommand carries the identity of the operator who confirmed the wipe.
type ResetAllCommand struct {
	RequestedBy int64
}

// ResetAllHandler executes the full reset.
type ResetAllHandler struct {
	store Resetter
	log   *logger.Logger
}

// NewResetAllHandler creates the handler.
func NewResetAllHandler(store Resetter, log *logger.Logger) *ResetAllHandler {
	return &ResetAllHandler{store: store, log: log}
}

// Handle wipes all tracking data.
func (h *ResetAllHandler) Handle(ctx context.Context, cmd ResetAllCommand) error {
	if err := h.store.ResetAll(ctx); err != nil {
		h.log.Error("full reset failed", logger.Err(err), logger.Identity(cmd.RequestedBy))
		return err
	}

	h.log.Warn("all tracking data reset", logger.Identity(cmd.RequestedBy))
	return nil
}
