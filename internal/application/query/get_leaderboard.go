// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Returns the top N for a category. Period-scoped categories (contest,
// engagement) default to the current month or week when no period is given;
// the ambassador board is all-time and ignores the period.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLeaderboardSize is used when the query does not set a limit.
const DefaultLeaderboardSize = 10

// GetLeaderboardQuery selects a board.
type GetLeaderboardQuery struct {
	// Category is one of the leaderboard categories.
	Category leaderboard.Category

	// Period overrides the current period for scoped categories.
	// Empty means "now".
	Period string

	// Limit caps the number of entries (defaults to DefaultLeaderboardSize).
	Limit int

	// Now anchors the default period (defaults to time.Now if zero).
	Now time.Time
}

// LeaderboardResult is the ranked board plus the period it covers.
type LeaderboardResult struct {
	Category leaderboard.Category
	Period   string
	Entries  []leaderboard.Entry
}

// GetLeaderboardHandler resolves the board through the configured ranker.
type GetLeaderboardHandler struct {
	ranker leaderboard.Ranker
	log    *logger.Logger
}

// NewGetLeaderboardHandler creates the handler.
func NewGetLeaderboardHandler(ranker leaderboard.Ranker, log *logger.Logger) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{ranker: ranker, log: log}
}

// Handle returns the ranked entries for the requested category.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardResult, error) {
	if !q.Category.Valid() {
		return nil, leaderboard.ErrUnknownCategory
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	periodKey := q.Period
	if periodKey == "" && q.Category.PeriodScoped() {
		switch q.Category {
		case leaderboard.CategoryContest:
			periodKey = string(period.Month(now))
		case leaderboard.CategoryEngagement:
			periodKey = string(period.Week(now))
		}
	}

	entries, err := h.ranker.TopN(ctx, q.Category, periodKey, limit)
	if err != nil {
		h.log.Error("leaderboard query failed",
			logger.Category(string(q.Category)),
			logger.Period(periodKey),
			logger.Err(err),
		)
		return nil, err
	}

	return &LeaderboardResult{
		Category: q.Category,
		Period:   periodKey,
		Entries:  entries,
	}, nil
}
