package query

import (
	"context"
	"errors"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MEMBER STATS QUERY
// Per-member view across the three tracks: lifetime ambassador points and
// completed invites, contest invites for the current month, and message count
// for the current week. Missing rows read as zero, never as an error.
// ══════════════════════════════════════════════════════════════════════════════

// GetMemberStatsQuery identifies the member.
type GetMemberStatsQuery struct {
	Identity referral.Identity

	// Now anchors the current week and month (defaults to time.Now if zero).
	Now time.Time
}

// MemberStats aggregates one member's standing across all tracks.
type MemberStats struct {
	Identity referral.Identity

	// IsAmbassador reports whether the member has registered as one.
	IsAmbassador bool

	// AmbassadorPoints is the lifetime points balance (zero for non-ambassadors).
	AmbassadorPoints int

	// CompletedReferrals is the lifetime count of completed ambassador invites.
	CompletedReferrals int

	// ContestReferrals counts completed contest invites for the current month.
	ContestReferrals int
	ContestPeriod    period.MonthKey

	// WeeklyMessages is the message count for the current week.
	WeeklyMessages int
	WeekPeriod     period.WeekKey
}

// GetMemberStatsHandler reads across the referral and engagement stores.
type GetMemberStatsHandler struct {
	ambassadors referral.AmbassadorRepository
	contest     referral.ContestRepository
	activity    engagement.Repository
}

// NewGetMemberStatsHandler creates the handler.
func NewGetMemberStatsHandler(
	ambassadors referral.AmbassadorRepository,
	contest referral.ContestRepository,
	activity engagement.Repository,
) *GetMemberStatsHandler {
	return &GetMemberStatsHandler{
		ambassadors: ambassadors,
		contest:     contest,
		activity:    activity,
	}
}

// Handle collects the member's stats for the current periods.
func (h *GetMemberStatsHandler) Handle(ctx context.Context, q GetMemberStatsQuery) (*MemberStats, error) {
	if q.Identity <= 0 {
		return nil, referral.ErrInvalidIdentity
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	week, month := period.Current(now)

	stats := &MemberStats{
		Identity:      q.Identity,
		ContestPeriod: month,
		WeekPeriod:    week,
	}

	amb, err := h.ambassadors.GetByIdentity(ctx, q.Identity)
	switch {
	case err == nil:
		stats.IsAmbassador = true
		stats.AmbassadorPoints = amb.Points
		completed, err := h.ambassadors.CountCompletedReferrals(ctx, q.Identity)
		if err != nil {
			return nil, err
		}
		stats.CompletedReferrals = completed
	case errors.Is(err, referral.ErrAmbassadorNotFound):
		// Not an ambassador, the track reads as zero.
	default:
		return nil, err
	}

	contestCount, err := h.contest.CountCompleted(ctx, q.Identity, month)
	if err != nil {
		return nil, err
	}
	stats.ContestReferrals = contestCount

	entry, err := h.activity.Get(ctx, q.Identity, week)
	switch {
	case err == nil:
		stats.WeeklyMessages = entry.MessageCount
	case errors.Is(err, engagement.ErrEntryNotFound):
		// No messages this week.
	default:
		return nil, err
	}

	return stats, nil
}
