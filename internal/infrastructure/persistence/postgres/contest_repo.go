package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEST REPOSITORY IMPLEMENTATION
// Month-scoped contest referrals with replace semantics: one row per referred
// identity, overwritten when the identity enters a new month's contest.
// ══════════════════════════════════════════════════════════════════════════════

// ContestRepository implements referral.ContestRepository for PostgreSQL.
type ContestRepository struct {
	conn *Connection
}

// NewContestRepository creates a new ContestRepository.
func NewContestRepository(conn *Connection) *ContestRepository {
	return &ContestRepository{conn: conn}
}

// Get returns the contest row for a referred identity, any period.
func (r *ContestRepository) Get(ctx context.Context, referred referral.Identity) (*referral.ContestReferral, error) {
	query := `
		SELECT referred, referrer, display_name, referrer_display_name, status, completed_at, period
		FROM contest_referrals
		WHERE referred = $1
	`

	row := r.conn.QueryRow(ctx, query, int64(referred))
	return scanContest(row)
}

// GetForPeriod returns the contest row if it belongs to the given month.
func (r *ContestRepository) GetForPeriod(ctx context.Context, referred referral.Identity, p period.MonthKey) (*referral.ContestReferral, error) {
	query := `
		SELECT referred, referrer, display_name, referrer_display_name, status, completed_at, period
		FROM contest_referrals
		WHERE referred = $1 AND period = $2
	`

	row := r.conn.QueryRow(ctx, query, int64(referred), string(p))
	return scanContest(row)
}

// UpsertPending writes a pending row, replacing any row from an earlier month.
func (r *ContestRepository) UpsertPending(ctx context.Context, c *referral.ContestReferral) error {
	query := `
		INSERT INTO contest_referrals (referred, referrer, display_name, referrer_display_name, status, completed_at, period, created_at)
		VALUES ($1, $2, $3, $4, 'pending', NULL, $5, NOW())
		ON CONFLICT (referred) DO UPDATE SET
			referrer = EXCLUDED.referrer,
			display_name = EXCLUDED.display_name,
			referrer_display_name = EXCLUDED.referrer_display_name,
			status = 'pending',
			completed_at = NULL,
			period = EXCLUDED.period,
			created_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		int64(c.Referred),
		int64(c.Referrer),
		c.DisplayName,
		c.ReferrerName,
		string(c.Period),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contest referral: %w", err)
	}

	return nil
}

// EnsureIdentity creates the link owner's row if none exists. An existing
// row, whatever its state, is left untouched.
func (r *ContestRepository) EnsureIdentity(ctx context.Context, identity referral.Identity, displayName string, p period.MonthKey) error {
	query := `
		INSERT INTO contest_referrals (referred, referrer, display_name, status, period)
		VALUES ($1, 0, $2, 'completed', $3)
		ON CONFLICT (referred) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, int64(identity), displayName, string(p))
	if err != nil {
		return fmt.Errorf("failed to ensure contest identity: %w", err)
	}

	return nil
}

// Complete flips a pending contest referral to completed. The conditional
// UPDATE makes the transition exactly-once under concurrency.
func (r *ContestRepository) Complete(ctx context.Context, referred referral.Identity, p period.MonthKey, completedAt time.Time) (referral.Outcome, error) {
	tag, err := r.conn.Exec(ctx, `
		UPDATE contest_referrals
		SET status = 'completed', completed_at = $3
		WHERE referred = $1 AND period = $2 AND status = 'pending'
	`, int64(referred), string(p), completedAt)
	if err != nil {
		return referral.OutcomeNoRelationship, fmt.Errorf("failed to complete contest referral: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return referral.OutcomeCredited, nil
	}

	var status string
	err = r.conn.QueryRow(ctx, `
		SELECT status FROM contest_referrals WHERE referred = $1 AND period = $2
	`, int64(referred), string(p)).Scan(&status)
	if err != nil {
		if IsNoRows(err) {
			return referral.OutcomeNoRelationship, nil
		}
		return referral.OutcomeNoRelationship, fmt.Errorf("failed to read contest status: %w", err)
	}

	return referral.OutcomeAlreadyCompleted, nil
}

// CountCompleted counts a referrer's completed invites for one month.
func (r *ContestRepository) CountCompleted(ctx context.Context, referrer referral.Identity, p period.MonthKey) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM contest_referrals
		WHERE referrer = $1 AND period = $2 AND status = 'completed'
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, int64(referrer), string(p)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contest referrals: %w", err)
	}

	return count, nil
}

// ListAll returns every contest row, newest first.
func (r *ContestRepository) ListAll(ctx context.Context) ([]*referral.ContestReferral, error) {
	query := `
		SELECT referred, referrer, display_name, referrer_display_name, status, completed_at, period
		FROM contest_referrals
		ORDER BY created_at DESC, referred ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contest referrals: %w", err)
	}
	defer rows.Close()

	var out []*referral.ContestReferral
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func scanContest(row pgx.Row) (*referral.ContestReferral, error) {
	var c referral.ContestReferral
	var referred, referrer int64
	var status, p string
	var completedAt *time.Time

	err := row.Scan(&referred, &referrer, &c.DisplayName, &c.ReferrerName, &status, &completedAt, &p)
	if err != nil {
		if IsNoRows(err) {
			return nil, referral.ErrRelationshipNotFound
		}
		return nil, fmt.Errorf("failed to scan contest referral: %w", err)
	}

	c.Referred = referral.Identity(referred)
	c.Referrer = referral.Identity(referrer)
	c.Status = referral.Status(status)
	c.CompletedAt = completedAt
	c.Period = period.MonthKey(p)
	return &c, nil
}
