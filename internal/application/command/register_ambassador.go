// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER AMBASSADOR COMMAND
// Self-registration into the permanent referral program. Idempotent: a second
// registration returns the existing profile instead of failing.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterAmbassadorCommand contains the data to register an ambassador.
type RegisterAmbassadorCommand struct {
	// Identity is the platform-assigned numeric user ID.
	Identity referral.Identity

	// DisplayName is the name shown on leaderboards.
	DisplayName string

	// Now is the registration timestamp (defaults to time.Now if zero).
	Now time.Time
}

// RegisterAmbassadorResult contains the result of the registration.
type RegisterAmbassadorResult struct {
	// Ambassador is the stored profile (existing or newly created).
	Ambassador *referral.Ambassador

	// Created is false when the identity was already registered.
	Created bool
}

// RegisterAmbassadorHandler handles ambassador self-registration.
type RegisterAmbassadorHandler struct {
	ambassadors referral.AmbassadorRepository
	log         *logger.Logger
}

// NewRegisterAmbassadorHandler creates the handler.
func NewRegisterAmbassadorHandler(ambassadors referral.AmbassadorRepository, log *logger.Logger) *RegisterAmbassadorHandler {
	return &RegisterAmbassadorHandler{ambassadors: ambassadors, log: log}
}

// Handle executes the registration.
func (h *RegisterAmbassadorHandler) Handle(ctx context.Context, cmd RegisterAmbassadorCommand) (*RegisterAmbassadorResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	amb, err := referral.NewAmbassador(cmd.Identity, cmd.DisplayName, now)
	if err != nil {
		return nil, err
	}

	if err := h.ambassadors.Create(ctx, amb); err != nil {
		if errors.Is(err, referral.ErrAmbassadorExists) {
			existing, getErr := h.ambassadors.GetByIdentity(ctx, cmd.Identity)
			if getErr != nil {
				return nil, getErr
			}
			return &RegisterAmbassadorResult{Ambassador: existing, Created: false}, nil
		}
		return nil, err
	}

	h.log.Info("new ambassador registered",
		logger.Identity(int64(cmd.Identity)),
		logger.String("display_name", cmd.DisplayName),
	)
	return &RegisterAmbassadorResult{Ambassador: amb, Created: true}, nil
}
