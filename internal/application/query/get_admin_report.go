package query

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ADMIN REPORT QUERY
// One-screen operational summary: ambassador totals, completed contest invites
// for the current month, and engagement volume for the current week.
// ══════════════════════════════════════════════════════════════════════════════

// GetAdminReportQuery anchors the report periods.
type GetAdminReportQuery struct {
	// Now defaults to time.Now if zero.
	Now time.Time
}

// AdminReport is the aggregated snapshot shown to operators.
type AdminReport struct {
	GeneratedAt time.Time

	// Ambassador track, all-time.
	Ambassadors      int
	TotalPoints      int
	PendingReferrals int

	// Contest track, current month.
	ContestPeriod    period.MonthKey
	ContestCompleted int
	ContestPending   int

	// Engagement track, current week.
	WeekPeriod     period.WeekKey
	ActiveMembers  int
	WeeklyMessages int
}

// GetAdminReportHandler reads across all stores.
type GetAdminReportHandler struct {
	ambassadors   referral.AmbassadorRepository
	relationships referral.RelationshipRepository
	contest       referral.ContestRepository
	activity      engagement.Repository
}

// NewGetAdminReportHandler creates the handler.
func NewGetAdminReportHandler(
	ambassadors referral.AmbassadorRepository,
	relationships referral.RelationshipRepository,
	contest referral.ContestRepository,
	activity engagement.Repository,
) *GetAdminReportHandler {
	return &GetAdminReportHandler{
		ambassadors:   ambassadors,
		relationships: relationships,
		contest:       contest,
		activity:      activity,
	}
}

// Handle builds the report for the current periods.
func (h *GetAdminReportHandler) Handle(ctx context.Context, q GetAdminReportQuery) (*AdminReport, error) {
	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	week, month := period.Current(now)

	report := &AdminReport{
		GeneratedAt:   now,
		ContestPeriod: month,
		WeekPeriod:    week,
	}

	ambs, err := h.ambassadors.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	report.Ambassadors = len(ambs)
	for _, a := range ambs {
		report.TotalPoints += a.Points
	}

	rels, err := h.relationships.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		if !r.IsCompleted() {
			report.PendingReferrals++
		}
	}

	contests, err := h.contest.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range contests {
		// Rows without a referrer only carry the owner's display name.
		if c.Period != month || c.Referrer == 0 {
			continue
		}
		if c.Status == referral.StatusCompleted {
			report.ContestCompleted++
		} else {
			report.ContestPending++
		}
	}

	users, messages, err := h.activity.PeriodStats(ctx, week)
	if err != nil {
		return nil, err
	}
	report.ActiveMembers = users
	report.WeeklyMessages = messages

	return report, nil
}
