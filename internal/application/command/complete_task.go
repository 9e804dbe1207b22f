package command

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK COMMAND
// Runs when a referred identity presses the Done button. This is the critical
// exactly-once path: the pending -> completed transition and the referrer's
// credit commit as one unit inside the store, so two concurrent presses yield
// exactly one credit and one "already completed".
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTaskCommand identifies the relationship being completed.
type CompleteTaskCommand struct {
	// Referred is the identity that pressed Done.
	Referred referral.Identity

	// Referrer is the identity encoded in the original link.
	Referrer referral.Identity

	// Kind selects the namespace: ambassador or contest.
	Kind referral.LinkKind

	// Now is the event timestamp (defaults to time.Now if zero).
	Now time.Time
}

// CompleteTaskResult reports the outcome to the transport.
type CompleteTaskResult struct {
	// Outcome is credited, already_completed or no_such_relationship.
	Outcome referral.Outcome
}

// CompleteTaskHandler handles task completion for both namespaces.
type CompleteTaskHandler struct {
	relationships referral.RelationshipRepository
	contest       referral.ContestRepository
	log           *logger.Logger
}

// NewCompleteTaskHandler creates the handler.
func NewCompleteTaskHandler(
	relationships referral.RelationshipRepository,
	contest referral.ContestRepository,
	log *logger.Logger,
) *CompleteTaskHandler {
	return &CompleteTaskHandler{relationships: relationships, contest: contest, log: log}
}

// Handle executes the completion attempt.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*CompleteTaskResult, error) {
	if cmd.Referred <= 0 || cmd.Referrer <= 0 {
		return nil, referral.ErrInvalidIdentity
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var (
		outcome referral.Outcome
		err     error
	)
	switch cmd.Kind {
	case referral.LinkAmbassador:
		outcome, err = h.relationships.CompleteAndCredit(ctx, cmd.Referred, cmd.Referrer, referral.PointsPerReferral)
	case referral.LinkContest:
		outcome, err = h.contest.Complete(ctx, cmd.Referred, period.Month(now), now)
	default:
		return nil, referral.ErrInvalidIdentity
	}
	if err != nil {
		return nil, err
	}

	if outcome == referral.OutcomeCredited {
		h.log.Info("referral completed",
			logger.Identity(int64(cmd.Referred)),
			logger.Referrer(int64(cmd.Referrer)),
			logger.String("kind", string(cmd.Kind)),
		)
	}
	return &CompleteTaskResult{Outcome: outcome}, nil
}
