package handler

import (
	"context"

	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLER
// Handles /leaderboards plus the three category commands and their lb_*
// callbacks. The menu lets users pick a board; the boards themselves are
// plain top-10 lists.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardHandler serves leaderboard views.
type LeaderboardHandler struct {
	boards    *query.GetLeaderboardHandler
	present   *presenter.LeaderboardPresenter
	keyboards *presenter.KeyboardBuilder
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(
	boards *query.GetLeaderboardHandler,
	present *presenter.LeaderboardPresenter,
	keyboards *presenter.KeyboardBuilder,
) *LeaderboardHandler {
	return &LeaderboardHandler{boards: boards, present: present, keyboards: keyboards}
}

// Menu returns the board selection view.
func (h *LeaderboardHandler) Menu(ctx context.Context) (*Response, error) {
	return &Response{
		Text:     "🏆 Choose a Leaderboard:",
		Keyboard: h.keyboards.LeaderboardMenuKeyboard(),
	}, nil
}

// Board returns the ranked view for one category.
func (h *LeaderboardHandler) Board(ctx context.Context, category leaderboard.Category) (*Response, error) {
	result, err := h.boards.Handle(ctx, query.GetLeaderboardQuery{Category: category})
	if err != nil {
		return nil, err
	}

	view := h.present.FormatBoard(result)
	return &Response{
		Text:      view.Text,
		Keyboard:  view.Keyboard,
		ParseMode: view.ParseMode,
	}, nil
}
