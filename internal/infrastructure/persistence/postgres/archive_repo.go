package postgres

import (
	"context"
	"fmt"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE REPOSITORY IMPLEMENTATION
// Read side of the append-only winner archive.
// ══════════════════════════════════════════════════════════════════════════════

// ArchiveRepository implements engagement.ArchiveRepository for PostgreSQL.
type ArchiveRepository struct {
	conn *Connection
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(conn *Connection) *ArchiveRepository {
	return &ArchiveRepository{conn: conn}
}

// ListPeriods returns the archived periods for a category, newest first.
func (r *ArchiveRepository) ListPeriods(ctx context.Context, category string) ([]string, error) {
	query := `
		SELECT DISTINCT period
		FROM winner_archive
		WHERE category = $1
		ORDER BY period DESC
	`

	rows, err := r.conn.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive periods: %w", err)
	}
	defer rows.Close()

	var periods []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan archive period: %w", err)
		}
		periods = append(periods, p)
	}

	return periods, rows.Err()
}

// TopForPeriod returns up to n archived rows, highest count first. Ties keep
// archive insertion order through the serial id.
func (r *ArchiveRepository) TopForPeriod(ctx context.Context, category, p string, n int) ([]*engagement.WinnerRecord, error) {
	query := `
		SELECT category, period, identity, display_name, count, reward, awarded_at
		FROM winner_archive
		WHERE category = $1 AND period = $2
		ORDER BY count DESC, id ASC
		LIMIT $3
	`

	rows, err := r.conn.Query(ctx, query, category, p, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var out []*engagement.WinnerRecord
	for rows.Next() {
		var w engagement.WinnerRecord
		var identity int64
		if err := rows.Scan(&w.Category, &w.Period, &identity, &w.DisplayName, &w.Count, &w.Reward, &w.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		w.Identity = referral.Identity(identity)
		out = append(out, &w)
	}

	return out, rows.Err()
}
