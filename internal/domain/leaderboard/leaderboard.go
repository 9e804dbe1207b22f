// Package leaderboard defines the ranking port: ordered top-N views over the
// stored counters for a category and period.
package leaderboard

import (
	"context"

	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/domain/shared"
)

// Category selects which counter set is ranked.
type Category string

const (
	// CategoryAmbassador ranks ambassadors by permanent points. Not period
	// scoped; the period argument is ignored.
	CategoryAmbassador Category = "ambassador"

	// CategoryContest ranks referrers by completed contest referrals in a
	// month period.
	CategoryContest Category = "contest"

	// CategoryEngagement ranks identities by message count in a week period.
	CategoryEngagement Category = "engagement"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAmbassador, CategoryContest, CategoryEngagement:
		return true
	}
	return false
}

// PeriodScoped reports whether rankings in this category are period keyed.
func (c Category) PeriodScoped() bool {
	return c != CategoryAmbassador
}

// Entry is one ranked row: an identity and its metric for the category.
type Entry struct {
	Rank        int
	Identity    referral.Identity
	DisplayName string
	Score       int
}

// Ranker produces ordered top-N views. Repeated calls with unchanged data
// return identical ordering; ties break by creation order (first registered
// ranks higher).
type Ranker interface {
	// TopN returns at most n entries for the category and period. An empty
	// result is not an error.
	TopN(ctx context.Context, category Category, periodKey string, n int) ([]Entry, error)
}

// ErrUnknownCategory is returned for categories the ranker does not know.
var ErrUnknownCategory = shared.NewDomainError("leaderboard", "Rank", shared.ErrInvalidInput, "unknown category")
