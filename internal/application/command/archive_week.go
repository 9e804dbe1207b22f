package command

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE WEEK COMMAND
// Snapshots a week's engagement rows into the winner archive and deletes the
// live rows, as one transaction. Archive-then-delete ordering is enforced by
// the store; a failure partway leaves the live rows untouched.
// ══════════════════════════════════════════════════════════════════════════════

// ArchiveWeekCommand selects the week to archive.
type ArchiveWeekCommand struct {
	// Period is the week to archive. Zero value means the current week.
	Period period.WeekKey

	// Now is the event timestamp (defaults to time.Now if zero).
	Now time.Time
}

// ArchiveWeekResult reports what was archived.
type ArchiveWeekResult struct {
	// Period is the archived week key.
	Period period.WeekKey

	// Archived is the number of rows moved into the archive.
	Archived int
}

// ArchiveWeekHandler performs the weekly archive and reset.
type ArchiveWeekHandler struct {
	repo engagement.Repository
	log  *logger.Logger
}

// NewArchiveWeekHandler creates the handler.
func NewArchiveWeekHandler(repo engagement.Repository, log *logger.Logger) *ArchiveWeekHandler {
	return &ArchiveWeekHandler{repo: repo, log: log}
}

// Handle archives the week and clears its counters.
func (h *ArchiveWeekHandler) Handle(ctx context.Context, cmd ArchiveWeekCommand) (*ArchiveWeekResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	week := cmd.Period
	if week == "" {
		week = period.Week(now)
	}

	archived, err := h.repo.ArchiveAndReset(ctx, week, now)
	if err != nil {
		return nil, err
	}

	h.log.Info("weekly engagement archived",
		logger.Period(string(week)),
		logger.Int("rows", archived),
	)
	return &ArchiveWeekResult{Period: week, Archived: archived}, nil
}
