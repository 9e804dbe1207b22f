package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT REPOSITORY IMPLEMENTATION
// Weekly message counters. RecordMessage is one atomic upsert; ArchiveAndReset
// moves a week into the winner archive and deletes the live rows inside one
// transaction.
// ══════════════════════════════════════════════════════════════════════════════

// EngagementRepository implements engagement.Repository for PostgreSQL.
type EngagementRepository struct {
	conn *Connection
}

// NewEngagementRepository creates a new EngagementRepository.
func NewEngagementRepository(conn *Connection) *EngagementRepository {
	return &EngagementRepository{conn: conn}
}

// RecordMessage upserts the counter row for (identity, week).
func (r *EngagementRepository) RecordMessage(ctx context.Context, identity referral.Identity, displayName string, p period.WeekKey, at time.Time) error {
	query := `
		INSERT INTO engagement (identity, period, display_name, message_count, last_activity_at, first_message_at)
		VALUES ($1, $2, $3, 1, $4, $4)
		ON CONFLICT (identity, period) DO UPDATE SET
			message_count = engagement.message_count + 1,
			display_name = EXCLUDED.display_name,
			last_activity_at = EXCLUDED.last_activity_at
	`

	_, err := r.conn.Exec(ctx, query, int64(identity), string(p), displayName, at)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	return nil
}

// Get returns the counter row for an identity and week.
func (r *EngagementRepository) Get(ctx context.Context, identity referral.Identity, p period.WeekKey) (*engagement.Entry, error) {
	query := `
		SELECT identity, display_name, message_count, last_activity_at, period
		FROM engagement
		WHERE identity = $1 AND period = $2
	`

	row := r.conn.QueryRow(ctx, query, int64(identity), string(p))
	return scanEngagement(row)
}

// PeriodStats returns the active identity count and total messages for a week.
func (r *EngagementRepository) PeriodStats(ctx context.Context, p period.WeekKey) (int, int, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(message_count), 0)
		FROM engagement
		WHERE period = $1
	`

	var users, messages int
	if err := r.conn.QueryRow(ctx, query, string(p)).Scan(&users, &messages); err != nil {
		return 0, 0, fmt.Errorf("failed to read period stats: %w", err)
	}

	return users, messages, nil
}

// ArchiveAndReset snapshots a week into the winner archive and deletes the
// live rows. The INSERT..SELECT and the DELETE share one transaction, so a
// failure leaves the live counters intact.
func (r *EngagementRepository) ArchiveAndReset(ctx context.Context, p period.WeekKey, awardedAt time.Time) (int, error) {
	archived := 0

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO winner_archive (category, period, identity, display_name, count, reward, awarded_at)
			SELECT $1, period, identity, display_name, message_count, $2, $3
			FROM engagement
			WHERE period = $4
			ORDER BY message_count DESC, first_message_at ASC, identity ASC
		`, engagement.CategoryEngagement, engagement.RewardArchived, awardedAt, string(p))
		if err != nil {
			return fmt.Errorf("failed to archive engagement: %w", err)
		}
		archived = int(tag.RowsAffected())

		if _, err := tx.Exec(ctx, `DELETE FROM engagement WHERE period = $1`, string(p)); err != nil {
			return fmt.Errorf("failed to reset engagement: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return archived, nil
}

// ListAll returns every live counter row, busiest week first.
func (r *EngagementRepository) ListAll(ctx context.Context) ([]*engagement.Entry, error) {
	query := `
		SELECT identity, display_name, message_count, last_activity_at, period
		FROM engagement
		ORDER BY period DESC, message_count DESC, first_message_at ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagement: %w", err)
	}
	defer rows.Close()

	var out []*engagement.Entry
	for rows.Next() {
		e, err := scanEngagement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func scanEngagement(row pgx.Row) (*engagement.Entry, error) {
	var e engagement.Entry
	var identity int64
	var p string

	err := row.Scan(&identity, &e.DisplayName, &e.MessageCount, &e.LastActivityAt, &p)
	if err != nil {
		if IsNoRows(err) {
			return nil, engagement.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan engagement entry: %w", err)
	}

	e.Identity = referral.Identity(identity)
	e.Period = period.WeekKey(p)
	return &e, nil
}
