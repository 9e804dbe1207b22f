package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT DATA QUERY
// Gathers a full snapshot of every tracking table for the CSV export. The
// snapshot carries a batch ID so a given export file can be traced in logs.
// ══════════════════════════════════════════════════════════════════════════════

// ExportDataQuery anchors the export timestamp.
type ExportDataQuery struct {
	// Now defaults to time.Now if zero.
	Now time.Time
}

// ExportSnapshot is everything the export writer needs.
type ExportSnapshot struct {
	BatchID     uuid.UUID
	GeneratedAt time.Time

	Ambassadors   []*referral.Ambassador
	Relationships []*referral.AmbassadorReferral
	Contest       []*referral.ContestReferral
	Engagement    []*engagement.Entry
}

// Rows reports the total row count across all sections.
func (s *ExportSnapshot) Rows() int {
	return len(s.Ambassadors) + len(s.Relationships) + len(s.Contest) + len(s.Engagement)
}

// ExportDataHandler collects the snapshot.
type ExportDataHandler struct {
	ambassadors   referral.AmbassadorRepository
	relationships referral.RelationshipRepository
	contest       referral.ContestRepository
	activity      engagement.Repository
}

// NewExportDataHandler creates the handler.
func NewExportDataHandler(
	ambassadors referral.AmbassadorRepository,
	relationships referral.RelationshipRepository,
	contest referral.ContestRepository,
	activity engagement.Repository,
) *ExportDataHandler {
	return &ExportDataHandler{
		ambassadors:   ambassadors,
		relationships: relationships,
		contest:       contest,
		activity:      activity,
	}
}

// Handle reads every table into one snapshot.
func (h *ExportDataHandler) Handle(ctx context.Context, q ExportDataQuery) (*ExportSnapshot, error) {
	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	snapshot := &ExportSnapshot{
		BatchID:     uuid.New(),
		GeneratedAt: now,
	}

	var err error
	if snapshot.Ambassadors, err = h.ambassadors.ListAll(ctx); err != nil {
		return nil, err
	}
	if snapshot.Relationships, err = h.relationships.ListAll(ctx); err != nil {
		return nil, err
	}
	if snapshot.Contest, err = h.contest.ListAll(ctx); err != nil {
		return nil, err
	}
	if snapshot.Engagement, err = h.activity.ListAll(ctx); err != nil {
		return nil, err
	}

	return snapshot, nil
}
