package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// Handles /start: plain starts get the main menu, deep-linked starts register
// a referral and show the task list. The deep link payload encodes both the
// namespace (amb_ or ref_) and the referrer identity.
// ══════════════════════════════════════════════════════════════════════════════

// Deep link payload prefixes.
const (
	deepLinkAmbassador = "amb_"
	deepLinkContest    = "ref_"
)

// StartHandler handles the /start command.
type StartHandler struct {
	registerReferral *command.RegisterReferralHandler
	keyboards        *presenter.KeyboardBuilder
}

// NewStartHandler creates a new StartHandler.
func NewStartHandler(
	registerReferral *command.RegisterReferralHandler,
	keyboards *presenter.KeyboardBuilder,
) *StartHandler {
	return &StartHandler{
		registerReferral: registerReferral,
		keyboards:        keyboards,
	}
}

// StartRequest contains the parsed /start command data.
type StartRequest struct {
	// TelegramID is the user's Telegram ID.
	TelegramID int64

	// DisplayName is the user's display name (username or full name).
	DisplayName string

	// DeepLinkParam is the payload passed via deep link, empty for a
	// plain /start.
	DeepLinkParam string
}

// Handle processes the /start command.
func (h *StartHandler) Handle(ctx context.Context, req StartRequest) (*Response, error) {
	param := strings.TrimSpace(req.DeepLinkParam)

	switch {
	case strings.HasPrefix(param, deepLinkAmbassador):
		return h.handleReferralStart(ctx, req, param, referral.LinkAmbassador)
	case strings.HasPrefix(param, deepLinkContest):
		return h.handleReferralStart(ctx, req, param, referral.LinkContest)
	default:
		return h.handleMenu(), nil
	}
}

// handleReferralStart registers the opened link and shows the task list.
func (h *StartHandler) handleReferralStart(ctx context.Context, req StartRequest, param string, kind referral.LinkKind) (*Response, error) {
	referrerID, err := parseDeepLinkID(param)
	if err != nil {
		return &Response{Text: invalidLinkText(kind)}, nil
	}

	result, err := h.registerReferral.Handle(ctx, command.RegisterReferralCommand{
		Referred:    referral.Identity(req.TelegramID),
		Referrer:    referral.Identity(referrerID),
		DisplayName: req.DisplayName,
		Kind:        kind,
	})
	if err != nil {
		switch {
		case errors.Is(err, referral.ErrSelfReferral):
			return &Response{Text: "⚠️ You cannot use your own referral link!"}, nil
		case errors.Is(err, referral.ErrInvalidReferrer):
			return &Response{Text: invalidLinkText(kind)}, nil
		case errors.Is(err, referral.ErrInvalidIdentity):
			return &Response{Text: invalidLinkText(kind)}, nil
		}
		return nil, err
	}

	if result.Status == command.RegistrationCompleted {
		if kind == referral.LinkContest {
			return &Response{Text: "✅ You've already completed referral tasks this month!"}, nil
		}
		return &Response{Text: "✅ You've already completed ambassador tasks!"}, nil
	}

	return h.taskResponse(kind, referrerID, result.ReferrerName), nil
}

// taskResponse builds the task list message for a pending referral.
func (h *StartHandler) taskResponse(kind referral.LinkKind, referrerID int64, referrerName string) *Response {
	if kind == referral.LinkContest {
		return &Response{
			Text: fmt.Sprintf(
				"🎁 You've been invited by @%s!\n\n"+
					"🎯 Complete these tasks to help them win:\n"+
					"1️⃣ Join our Telegram channel\n"+
					"2️⃣ Follow us on X\n\n"+
					"🏆 Top referrers win rewards weekly/monthly!\n\n"+
					"Click ✅ when done!",
				presenter.EscapeHTML(referrerName),
			),
			Keyboard: h.keyboards.ContestTaskKeyboard(referrerID),
		}
	}

	return &Response{
		Text: fmt.Sprintf(
			"👋 Welcome! You've been invited by @%s (Ambassador)!\n\n"+
				"🎯 Complete these tasks:\n"+
				"1️⃣ Join our Telegram channel\n"+
				"2️⃣ Follow us on X\n\n"+
				"Click ✅ when done!",
			presenter.EscapeHTML(referrerName),
		),
		Keyboard: h.keyboards.AmbassadorTaskKeyboard(referrerID),
	}
}

// handleMenu builds the plain /start welcome message.
func (h *StartHandler) handleMenu() *Response {
	return &Response{
		Text: "🌟 <b>Welcome to Cerulean Labs!</b>\n\n" +
			"Choose an option below:\n\n" +
			"👑 <b>Ambassador Program</b>: Earn points for referrals\n" +
			"🎯 <b>Referral Contest</b>: Win weekly/monthly rewards\n" +
			"💬 <b>Engagement Rewards</b>: Active group members get rewarded\n\n" +
			"Select an option to get started!",
		Keyboard:  h.keyboards.MainMenuKeyboard(),
		ParseMode: "HTML",
	}
}

// invalidLinkText picks the rejection message for the flow the link
// belongs to, so a broken ref_ link never mentions ambassadors.
func invalidLinkText(kind referral.LinkKind) string {
	if kind == referral.LinkContest {
		return "❌ Invalid referral contest link."
	}
	return "❌ Invalid ambassador referral link."
}

// parseDeepLinkID extracts the referrer identity from a deep link payload.
func parseDeepLinkID(param string) (int64, error) {
	raw := param
	raw = strings.TrimPrefix(raw, deepLinkAmbassador)
	raw = strings.TrimPrefix(raw, deepLinkContest)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("malformed deep link payload %q", param)
	}
	return id, nil
}
