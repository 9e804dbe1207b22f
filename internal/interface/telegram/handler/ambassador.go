package handler

import (
	"context"
	"fmt"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// BECOME AMBASSADOR HANDLER
// Handles /become_ambassador and the become_amb menu button. Registration is
// idempotent; an existing ambassador is pointed at /stats instead of failing.
// ══════════════════════════════════════════════════════════════════════════════

// BecomeAmbassadorHandler handles ambassador self-registration.
type BecomeAmbassadorHandler struct {
	register *command.RegisterAmbassadorHandler
	links    *LinkBuilder
}

// NewBecomeAmbassadorHandler creates a new BecomeAmbassadorHandler.
func NewBecomeAmbassadorHandler(
	register *command.RegisterAmbassadorHandler,
	links *LinkBuilder,
) *BecomeAmbassadorHandler {
	return &BecomeAmbassadorHandler{register: register, links: links}
}

// BecomeAmbassadorRequest identifies the registering user.
type BecomeAmbassadorRequest struct {
	TelegramID  int64
	DisplayName string
}

// Handle processes the registration.
func (h *BecomeAmbassadorHandler) Handle(ctx context.Context, req BecomeAmbassadorRequest) (*Response, error) {
	result, err := h.register.Handle(ctx, command.RegisterAmbassadorCommand{
		Identity:    referral.Identity(req.TelegramID),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	if !result.Created {
		return &Response{
			Text: "👑 You're already an ambassador!\nUse /stats to see your referral link.",
		}, nil
	}

	link := h.links.AmbassadorLink(req.TelegramID)
	return &Response{
		Text: fmt.Sprintf(
			"🎉 <b>You're now a Cerulean Labs Ambassador!</b>\n\n"+
				"🔗 Your referral link:\n<code>%s</code>\n\n"+
				"📈 Earn %d point per completed referral!\n"+
				"Use /stats to track your progress!",
			link,
			referral.PointsPerReferral,
		),
		ParseMode: "HTML",
	}, nil
}
