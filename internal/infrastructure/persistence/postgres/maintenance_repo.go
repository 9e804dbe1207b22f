package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAINTENANCE REPOSITORY IMPLEMENTATION
// The admin full reset. Every tracking table is wiped in one transaction so
// a half-done reset can never be observed.
// ══════════════════════════════════════════════════════════════════════════════

// MaintenanceRepository implements the full data reset for PostgreSQL.
type MaintenanceRepository struct {
	conn *Connection
}

// NewMaintenanceRepository creates a new MaintenanceRepository.
func NewMaintenanceRepository(conn *Connection) *MaintenanceRepository {
	return &MaintenanceRepository{conn: conn}
}

// ResetAll truncates every tracking table, the winner archive included.
func (r *MaintenanceRepository) ResetAll(ctx context.Context) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		// Single statement keeps the foreign key between referrals and
		// ambassadors satisfied throughout.
		_, err := tx.Exec(ctx, `
			TRUNCATE TABLE ambassador_referrals, ambassadors, contest_referrals, engagement, winner_archive
		`)
		if err != nil {
			return fmt.Errorf("failed to reset tracking data: %w", err)
		}
		return nil
	})
}
