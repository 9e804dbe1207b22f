package handler

import (
	"context"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// DONE HANDLER
// Handles the ✅ Done! callbacks (amb_done_ and ref_done_). This is the
// user-facing end of the exactly-once crediting path: however many times the
// button is pressed, the referrer is credited once and every later press
// edits the message to "already completed".
// ══════════════════════════════════════════════════════════════════════════════

// DoneHandler completes referral tasks.
type DoneHandler struct {
	complete *command.CompleteTaskHandler
}

// NewDoneHandler creates a new DoneHandler.
func NewDoneHandler(complete *command.CompleteTaskHandler) *DoneHandler {
	return &DoneHandler{complete: complete}
}

// DoneRequest identifies the completion attempt.
type DoneRequest struct {
	// TelegramID is the referred user pressing the button.
	TelegramID int64

	// ReferrerID is the referrer encoded in the callback data.
	ReferrerID int64

	// Kind selects the namespace the button belongs to.
	Kind referral.LinkKind
}

// Handle processes the button press. The response always edits the task
// message so the keyboard disappears.
func (h *DoneHandler) Handle(ctx context.Context, req DoneRequest) (*Response, error) {
	result, err := h.complete.Handle(ctx, command.CompleteTaskCommand{
		Referred: referral.Identity(req.TelegramID),
		Referrer: referral.Identity(req.ReferrerID),
		Kind:     req.Kind,
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome != referral.OutcomeCredited {
		return &Response{Text: "✅ Already completed!", Edit: true}, nil
	}

	if req.Kind == referral.LinkContest {
		return &Response{
			Text: "🎉 Tasks completed! Your referrer gets credit!\n" +
				"🏆 Want to compete? Send /get_referral_link",
			Edit: true,
		}, nil
	}

	return &Response{
		Text: "🎉 Tasks completed! Thank you for joining!\n" +
			"🚀 Want your own referral link? Send /get_referral_link",
		Edit: true,
	}, nil
}
