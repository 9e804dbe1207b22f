package command

import (
	"context"
	"errors"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER REFERRAL COMMAND
// Runs when a referred identity opens a referral link. Two namespaces share
// the flow: ambassador links create lifetime relationships, contest links
// create month-scoped ones with replace semantics. Registration is idempotent;
// re-opening a link never duplicates rows or errors.
// ══════════════════════════════════════════════════════════════════════════════

// RegistrationStatus describes what the registration found or did.
type RegistrationStatus string

const (
	// RegistrationNew means a fresh pending relationship was created.
	RegistrationNew RegistrationStatus = "new_pending"

	// RegistrationPending means a pending relationship already existed.
	// The caller shows the task list again.
	RegistrationPending RegistrationStatus = "existing_pending"

	// RegistrationCompleted means the relationship is already terminal.
	// Informational, not an error.
	RegistrationCompleted RegistrationStatus = "already_completed"
)

// RegisterReferralCommand contains the data from an opened referral link.
type RegisterReferralCommand struct {
	// Referred is the identity that opened the link.
	Referred referral.Identity

	// Referrer is the identity encoded in the link.
	Referrer referral.Identity

	// DisplayName is the referred identity's display name (stored on
	// contest rows so rankings never need a join).
	DisplayName string

	// Kind selects the namespace: ambassador or contest.
	Kind referral.LinkKind

	// Now is the event timestamp (defaults to time.Now if zero).
	Now time.Time
}

// RegisterReferralResult is returned to the transport for rendering.
type RegisterReferralResult struct {
	// Status describes what happened.
	Status RegistrationStatus

	// ReferrerName is the referrer's stored display name, for the greeting.
	ReferrerName string
}

// RegisterReferralHandler handles both referral namespaces.
type RegisterReferralHandler struct {
	ambassadors   referral.AmbassadorRepository
	relationships referral.RelationshipRepository
	contest       referral.ContestRepository
	log           *logger.Logger
}

// NewRegisterReferralHandler creates the handler.
func NewRegisterReferralHandler(
	ambassadors referral.AmbassadorRepository,
	relationships referral.RelationshipRepository,
	contest referral.ContestRepository,
	log *logger.Logger,
) *RegisterReferralHandler {
	return &RegisterReferralHandler{
		ambassadors:   ambassadors,
		relationships: relationships,
		contest:       contest,
		log:           log,
	}
}

// Handle executes the registration.
func (h *RegisterReferralHandler) Handle(ctx context.Context, cmd RegisterReferralCommand) (*RegisterReferralResult, error) {
	if err := referral.ValidatePair(cmd.Referred, cmd.Referrer); err != nil {
		return nil, err
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	switch cmd.Kind {
	case referral.LinkAmbassador:
		return h.registerAmbassadorReferral(ctx, cmd, now)
	case referral.LinkContest:
		return h.registerContestReferral(ctx, cmd, now)
	default:
		return nil, referral.ErrInvalidIdentity
	}
}

func (h *RegisterReferralHandler) registerAmbassadorReferral(ctx context.Context, cmd RegisterReferralCommand, now time.Time) (*RegisterReferralResult, error) {
	amb, err := h.ambassadors.GetByIdentity(ctx, cmd.Referrer)
	if err != nil {
		if errors.Is(err, referral.ErrAmbassadorNotFound) {
			return nil, referral.ErrInvalidReferrer
		}
		return nil, err
	}

	existing, err := h.relationships.Get(ctx, cmd.Referred)
	if err == nil {
		if existing.IsCompleted() {
			return &RegisterReferralResult{Status: RegistrationCompleted, ReferrerName: amb.DisplayName}, nil
		}
		return &RegisterReferralResult{Status: RegistrationPending, ReferrerName: amb.DisplayName}, nil
	}
	if !errors.Is(err, referral.ErrRelationshipNotFound) {
		return nil, err
	}

	if err := h.relationships.CreatePending(ctx, cmd.Referred, cmd.Referrer, now); err != nil {
		// Concurrent registration: the row appeared between read and write.
		// Re-read and report the stored state instead of failing.
		if errors.Is(err, referral.ErrRelationshipExists) {
			return h.registerAmbassadorReferral(ctx, cmd, now)
		}
		return nil, err
	}

	h.log.Info("new ambassador referral",
		logger.Identity(int64(cmd.Referred)),
		logger.Referrer(int64(cmd.Referrer)),
	)
	return &RegisterReferralResult{Status: RegistrationNew, ReferrerName: amb.DisplayName}, nil
}

func (h *RegisterReferralHandler) registerContestReferral(ctx context.Context, cmd RegisterReferralCommand, now time.Time) (*RegisterReferralResult, error) {
	month := period.Month(now)

	// Contest links need no prior registration by the referrer; the name
	// resolved here is stamped on the row so rankings and the greeting read
	// the same value. A referrer who never opened a link gets a placeholder.
	referrerName := "Unknown"
	if owner, err := h.contest.Get(ctx, cmd.Referrer); err == nil {
		referrerName = owner.DisplayName
	}

	existing, err := h.contest.GetForPeriod(ctx, cmd.Referred, month)
	if err == nil {
		if existing.IsCompleted() {
			return &RegisterReferralResult{Status: RegistrationCompleted, ReferrerName: referrerName}, nil
		}
		return &RegisterReferralResult{Status: RegistrationPending, ReferrerName: referrerName}, nil
	}
	if !errors.Is(err, referral.ErrRelationshipNotFound) {
		return nil, err
	}

	row := &referral.ContestReferral{
		Referred:     cmd.Referred,
		Referrer:     cmd.Referrer,
		DisplayName:  cmd.DisplayName,
		ReferrerName: referrerName,
		Status:       referral.StatusPending,
		Period:       month,
	}
	if err := h.contest.UpsertPending(ctx, row); err != nil {
		return nil, err
	}

	h.log.Info("new contest referral",
		logger.Identity(int64(cmd.Referred)),
		logger.Referrer(int64(cmd.Referrer)),
		logger.Period(string(month)),
	)
	return &RegisterReferralResult{Status: RegistrationNew, ReferrerName: referrerName}, nil
}
