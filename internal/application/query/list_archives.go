package query

import (
	"context"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ARCHIVES QUERY
// Browses past weekly winner snapshots: the list of archived weeks, and the
// top rows for a chosen week.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultArchiveTop caps how many winners are shown per archived week.
const DefaultArchiveTop = 3

// ListArchivePeriodsQuery selects the category to browse.
type ListArchivePeriodsQuery struct {
	// Category defaults to engagement when empty.
	Category string
}

// GetArchivedWinnersQuery selects one archived period.
type GetArchivedWinnersQuery struct {
	Category string
	Period   string
	Limit    int
}

// ListArchivesHandler reads the winner archive.
type ListArchivesHandler struct {
	archive engagement.ArchiveRepository
}

// NewListArchivesHandler creates the handler.
func NewListArchivesHandler(archive engagement.ArchiveRepository) *ListArchivesHandler {
	return &ListArchivesHandler{archive: archive}
}

// Periods returns the archived period keys for a category, newest first.
func (h *ListArchivesHandler) Periods(ctx context.Context, q ListArchivePeriodsQuery) ([]string, error) {
	category := q.Category
	if category == "" {
		category = engagement.CategoryEngagement
	}
	return h.archive.ListPeriods(ctx, category)
}

// Winners returns the top archived rows for one period.
func (h *ListArchivesHandler) Winners(ctx context.Context, q GetArchivedWinnersQuery) ([]*engagement.WinnerRecord, error) {
	category := q.Category
	if category == "" {
		category = engagement.CategoryEngagement
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultArchiveTop
	}
	return h.archive.TopForPeriod(ctx, category, q.Period, limit)
}
