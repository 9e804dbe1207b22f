package handler

import (
	"context"
	"fmt"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFERRAL LINK HANDLER
// Handles /get_referral_link and the get_ref menu button. Requesting a link
// anchors the owner's display name in the contest store so the monthly
// ranking can show it; the link itself is deterministic.
// ══════════════════════════════════════════════════════════════════════════════

// ReferralLinkHandler hands out monthly contest links.
type ReferralLinkHandler struct {
	ensure *command.EnsureContestIdentityHandler
	links  *LinkBuilder
}

// NewReferralLinkHandler creates a new ReferralLinkHandler.
func NewReferralLinkHandler(
	ensure *command.EnsureContestIdentityHandler,
	links *LinkBuilder,
) *ReferralLinkHandler {
	return &ReferralLinkHandler{ensure: ensure, links: links}
}

// ReferralLinkRequest identifies the requesting user.
type ReferralLinkRequest struct {
	TelegramID  int64
	DisplayName string
}

// Handle processes the link request.
func (h *ReferralLinkHandler) Handle(ctx context.Context, req ReferralLinkRequest) (*Response, error) {
	err := h.ensure.Handle(ctx, command.EnsureContestIdentityCommand{
		Identity:    referral.Identity(req.TelegramID),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	link := h.links.ContestLink(req.TelegramID)
	return &Response{
		Text: fmt.Sprintf(
			"🎁 Your Referral Contest Link\n\n"+
				"🔗 Link: %s\n\n"+
				"🏆 This Month's Contest:\n"+
				"Top referrers win exclusive rewards!\n\n"+
				"💡 Share with friends and climb the leaderboard!\n"+
				"Use /referral_leaderboard to see rankings!",
			link,
		),
	}, nil
}
