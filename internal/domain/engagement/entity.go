// Package engagement contains the week-scoped message counting domain and the
// append-only winner archive that survives weekly resets.
package engagement

import (
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/domain/shared"
)

// Entry is one identity's message count for one ISO week. Unique per
// (identity, period); mutated only through the store's atomic upsert.
type Entry struct {
	Identity       referral.Identity
	DisplayName    string
	MessageCount   int
	LastActivityAt time.Time
	Period         period.WeekKey
}

// CategoryEngagement is the archive category for weekly engagement snapshots.
const CategoryEngagement = "engagement"

// RewardArchived is the reward label stamped on rows archived by a weekly
// reset (as opposed to rows recording an actual prize).
const RewardArchived = "Archived"

// WinnerRecord is an append-only snapshot row in the winner archive. It is
// the historical record of a period after its live counters were reset.
type WinnerRecord struct {
	Category    string
	Period      string
	Identity    referral.Identity
	DisplayName string
	Count       int
	Reward      string
	AwardedAt   time.Time
}

// Engagement domain errors.
var (
	// ErrEntryNotFound is returned when no counter row exists for the
	// identity and period.
	ErrEntryNotFound = shared.NewDomainError("engagement", "Find", shared.ErrNotFound, "no engagement recorded")

	// ErrNothingToArchive is returned when an archive is requested for a
	// period with no rows. Informational.
	ErrNothingToArchive = shared.NewDomainError("engagement", "Archive", shared.ErrNotFound, "no rows for period")
)
