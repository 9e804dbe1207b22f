package engagement

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// Repository persists weekly engagement counters. RecordMessage must be a
// single atomic upsert: concurrent calls for the same identity never lose
// increments.
type Repository interface {
	// RecordMessage inserts a row with count 1 or increments the existing
	// row, refreshing display name and last activity, in one atomic step.
	RecordMessage(ctx context.Context, identity referral.Identity, displayName string, p period.WeekKey, at time.Time) error

	// Get returns the entry for an identity and week, or ErrEntryNotFound.
	Get(ctx context.Context, identity referral.Identity, p period.WeekKey) (*Entry, error)

	// PeriodStats returns the number of active identities and the total
	// message count for a week.
	PeriodStats(ctx context.Context, p period.WeekKey) (users int, messages int, err error)

	// ArchiveAndReset snapshots every row of the week into the winner
	// archive (category "engagement", reward "Archived") and deletes the
	// live rows, as one transaction. Returns the number of archived rows.
	ArchiveAndReset(ctx context.Context, p period.WeekKey, awardedAt time.Time) (int, error)

	// ListAll returns every live entry, busiest week first.
	ListAll(ctx context.Context) ([]*Entry, error)
}

// ArchiveRepository reads the append-only winner archive.
type ArchiveRepository interface {
	// ListPeriods returns the archived periods for a category, newest first.
	ListPeriods(ctx context.Context, category string) ([]string, error)

	// TopForPeriod returns up to n archived rows for a category and period,
	// highest count first, ties by archive insertion order.
	TopForPeriod(ctx context.Context, category, p string, n int) ([]*WinnerRecord, error)
}
