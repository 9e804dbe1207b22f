package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// AMBASSADOR REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AmbassadorRepository implements referral.AmbassadorRepository for PostgreSQL.
type AmbassadorRepository struct {
	conn *Connection
}

// NewAmbassadorRepository creates a new AmbassadorRepository.
func NewAmbassadorRepository(conn *Connection) *AmbassadorRepository {
	return &AmbassadorRepository{conn: conn}
}

// Create inserts a new ambassador profile.
func (r *AmbassadorRepository) Create(ctx context.Context, a *referral.Ambassador) error {
	query := `
		INSERT INTO ambassadors (identity, display_name, points, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query,
		int64(a.Identity),
		a.DisplayName,
		a.Points,
		a.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return referral.ErrAmbassadorExists
		}
		return fmt.Errorf("failed to create ambassador: %w", err)
	}

	return nil
}

// GetByIdentity returns an ambassador by platform identity.
func (r *AmbassadorRepository) GetByIdentity(ctx context.Context, identity referral.Identity) (*referral.Ambassador, error) {
	query := `
		SELECT identity, display_name, points, created_at
		FROM ambassadors
		WHERE identity = $1
	`

	row := r.conn.QueryRow(ctx, query, int64(identity))
	return scanAmbassador(row)
}

// ListAll returns every ambassador, oldest registration first.
func (r *AmbassadorRepository) ListAll(ctx context.Context) ([]*referral.Ambassador, error) {
	query := `
		SELECT identity, display_name, points, created_at
		FROM ambassadors
		ORDER BY created_at ASC, identity ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ambassadors: %w", err)
	}
	defer rows.Close()

	var out []*referral.Ambassador
	for rows.Next() {
		a, err := scanAmbassador(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

// CountCompletedReferrals returns the lifetime completed invite count.
func (r *AmbassadorRepository) CountCompletedReferrals(ctx context.Context, referrer referral.Identity) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ambassador_referrals
		WHERE referrer = $1 AND status = 'completed'
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, int64(referrer)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed referrals: %w", err)
	}

	return count, nil
}

func scanAmbassador(row pgx.Row) (*referral.Ambassador, error) {
	var a referral.Ambassador
	var identity int64

	err := row.Scan(&identity, &a.DisplayName, &a.Points, &a.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, referral.ErrAmbassadorNotFound
		}
		return nil, fmt.Errorf("failed to scan ambassador: %w", err)
	}

	a.Identity = referral.Identity(identity)
	return &a, nil
}
