package command

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENSURE CONTEST IDENTITY COMMAND
// Runs when an identity requests its own contest link. This is a registration
// path, not a completion: the row anchors the link owner's display name so
// the monthly ranking can resolve names without joining across referrals.
// A visitor who was referred earlier keeps their existing row untouched.
// ══════════════════════════════════════════════════════════════════════════════

// EnsureContestIdentityCommand identifies the link owner.
type EnsureContestIdentityCommand struct {
	// Identity is the link owner.
	Identity referral.Identity

	// DisplayName is the name stored on the row.
	DisplayName string

	// Now is the event timestamp (defaults to time.Now if zero).
	Now time.Time
}

// EnsureContestIdentityHandler registers contest link owners.
type EnsureContestIdentityHandler struct {
	contest referral.ContestRepository
	log     *logger.Logger
}

// NewEnsureContestIdentityHandler creates the handler.
func NewEnsureContestIdentityHandler(contest referral.ContestRepository, log *logger.Logger) *EnsureContestIdentityHandler {
	return &EnsureContestIdentityHandler{contest: contest, log: log}
}

// Handle makes sure a contest row exists for the identity. Idempotent.
func (h *EnsureContestIdentityHandler) Handle(ctx context.Context, cmd EnsureContestIdentityCommand) error {
	if cmd.Identity <= 0 {
		return referral.ErrInvalidIdentity
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if err := h.contest.EnsureIdentity(ctx, cmd.Identity, cmd.DisplayName, period.Month(now)); err != nil {
		return err
	}

	h.log.Debug("contest identity ensured", logger.Identity(int64(cmd.Identity)))
	return nil
}
