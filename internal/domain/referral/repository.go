package referral

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
)

// AmbassadorRepository persists ambassador profiles.
type AmbassadorRepository interface {
	// Create inserts a new ambassador. Returns ErrAmbassadorExists if the
	// identity is already registered.
	Create(ctx context.Context, a *Ambassador) error

	// GetByIdentity returns the ambassador, or ErrAmbassadorNotFound.
	GetByIdentity(ctx context.Context, identity Identity) (*Ambassador, error)

	// ListAll returns every ambassador ordered by points descending, then by
	// creation order. Used by the export adapter and the ranking fallback.
	ListAll(ctx context.Context) ([]*Ambassador, error)

	// CountCompletedReferrals counts completed lifetime referrals credited
	// to the given referrer.
	CountCompletedReferrals(ctx context.Context, referrer Identity) (int, error)
}

// RelationshipRepository persists lifetime ambassador referral relationships.
// Implementations must make CompleteAndCredit a single atomic unit: the status
// transition and the points increment commit together or not at all.
type RelationshipRepository interface {
	// Get returns the relationship for a referred identity, or
	// ErrRelationshipNotFound.
	Get(ctx context.Context, referred Identity) (*AmbassadorReferral, error)

	// CreatePending inserts a pending relationship. Returns
	// ErrRelationshipExists if the referred identity already has one.
	CreatePending(ctx context.Context, referred, referrer Identity, joinedAt time.Time) error

	// CompleteAndCredit transitions a matching pending relationship to
	// completed and increments the referrer's points by reward, atomically.
	// The transition happens at most once across concurrent calls.
	CompleteAndCredit(ctx context.Context, referred, referrer Identity, reward int) (Outcome, error)

	// ListAll returns every relationship, newest first.
	ListAll(ctx context.Context) ([]*AmbassadorReferral, error)
}

// ContestRepository persists month-scoped contest referrals. The referred
// identity is the key; registering in a new month replaces the previous row.
type ContestRepository interface {
	// Get returns the contest row for a referred identity regardless of
	// period, or ErrRelationshipNotFound.
	Get(ctx context.Context, referred Identity) (*ContestReferral, error)

	// GetForPeriod returns the row only if it belongs to the given month,
	// or ErrRelationshipNotFound.
	GetForPeriod(ctx context.Context, referred Identity, p period.MonthKey) (*ContestReferral, error)

	// UpsertPending creates a pending row for the referred identity in the
	// given month, replacing any row from an earlier month.
	UpsertPending(ctx context.Context, r *ContestReferral) error

	// EnsureIdentity creates a completed self-row for a contest link owner if
	// none exists yet. Registering a link owner is not a completion; the row
	// only anchors the display name and link ownership.
	EnsureIdentity(ctx context.Context, identity Identity, displayName string, p period.MonthKey) error

	// Complete transitions the referred identity's row for the month from
	// pending to completed and stamps completed_at, at most once.
	Complete(ctx context.Context, referred Identity, p period.MonthKey, completedAt time.Time) (Outcome, error)

	// CountCompleted counts completed rows credited to a referrer in a month.
	CountCompleted(ctx context.Context, referrer Identity, p period.MonthKey) (int, error)

	// ListAll returns every contest row, newest period first.
	ListAll(ctx context.Context) ([]*ContestReferral, error)
}
