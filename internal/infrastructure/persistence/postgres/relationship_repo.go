package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELATIONSHIP REPOSITORY IMPLEMENTATION
// Lifetime referral relationships. CompleteAndCredit is the exactly-once
// critical section: a conditional status flip and the points credit commit
// in one transaction, so concurrent confirmations contend on the row lock
// and only the first one credits.
// ══════════════════════════════════════════════════════════════════════════════

// RelationshipRepository implements referral.RelationshipRepository for PostgreSQL.
type RelationshipRepository struct {
	conn *Connection
}

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(conn *Connection) *RelationshipRepository {
	return &RelationshipRepository{conn: conn}
}

// Get returns the relationship for a referred identity.
func (r *RelationshipRepository) Get(ctx context.Context, referred referral.Identity) (*referral.AmbassadorReferral, error) {
	query := `
		SELECT referred, referrer, status, joined_at
		FROM ambassador_referrals
		WHERE referred = $1
	`

	row := r.conn.QueryRow(ctx, query, int64(referred))
	return scanRelationship(row)
}

// CreatePending inserts a new pending relationship.
func (r *RelationshipRepository) CreatePending(ctx context.Context, referred, referrer referral.Identity, joinedAt time.Time) error {
	query := `
		INSERT INTO ambassador_referrals (referred, referrer, status, joined_at)
		VALUES ($1, $2, 'pending', $3)
	`

	_, err := r.conn.Exec(ctx, query, int64(referred), int64(referrer), joinedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return referral.ErrRelationshipExists
		}
		if IsForeignKeyViolation(err) {
			return referral.ErrInvalidReferrer
		}
		return fmt.Errorf("failed to create pending referral: %w", err)
	}

	return nil
}

// CompleteAndCredit flips the relationship to completed and credits the
// referrer, as one transaction.
func (r *RelationshipRepository) CompleteAndCredit(ctx context.Context, referred, referrer referral.Identity, reward int) (referral.Outcome, error) {
	outcome := referral.OutcomeNoRelationship

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		// The conditional UPDATE is the decision point: zero rows affected
		// means the transition already happened or the row never existed.
		tag, err := tx.Exec(ctx, `
			UPDATE ambassador_referrals
			SET status = 'completed'
			WHERE referred = $1 AND referrer = $2 AND status = 'pending'
		`, int64(referred), int64(referrer))
		if err != nil {
			return fmt.Errorf("failed to complete referral: %w", err)
		}

		if tag.RowsAffected() == 0 {
			var status string
			err := tx.QueryRow(ctx, `
				SELECT status FROM ambassador_referrals
				WHERE referred = $1 AND referrer = $2
			`, int64(referred), int64(referrer)).Scan(&status)
			if err != nil {
				if IsNoRows(err) {
					outcome = referral.OutcomeNoRelationship
					return nil
				}
				return fmt.Errorf("failed to read referral status: %w", err)
			}
			outcome = referral.OutcomeAlreadyCompleted
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE ambassadors SET points = points + $1 WHERE identity = $2
		`, reward, int64(referrer))
		if err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}

		outcome = referral.OutcomeCredited
		return nil
	})
	if err != nil {
		return referral.OutcomeNoRelationship, err
	}

	return outcome, nil
}

// ListAll returns every relationship, newest first.
func (r *RelationshipRepository) ListAll(ctx context.Context) ([]*referral.AmbassadorReferral, error) {
	query := `
		SELECT referred, referrer, status, joined_at
		FROM ambassador_referrals
		ORDER BY joined_at DESC, referred ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var out []*referral.AmbassadorReferral
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}

	return out, rows.Err()
}

func scanRelationship(row pgx.Row) (*referral.AmbassadorReferral, error) {
	var rel referral.AmbassadorReferral
	var referred, referrer int64
	var status string

	err := row.Scan(&referred, &referrer, &status, &rel.JoinedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, referral.ErrRelationshipNotFound
		}
		return nil, fmt.Errorf("failed to scan referral: %w", err)
	}

	rel.Referred = referral.Identity(referred)
	rel.Referrer = referral.Identity(referrer)
	rel.Status = referral.Status(status)
	return &rel, nil
}
