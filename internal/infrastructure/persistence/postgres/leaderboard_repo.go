package postgres

import (
	"context"
	"fmt"

	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// Ranked top-N reads straight off the counter tables. Ordering is strict and
// deterministic so repeated reads of unchanged data never reshuffle: score
// first, then creation order, then identity.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Ranker for PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// TopN returns at most n ranked entries for the category and period.
func (r *LeaderboardRepository) TopN(ctx context.Context, category leaderboard.Category, periodKey string, n int) ([]leaderboard.Entry, error) {
	switch category {
	case leaderboard.CategoryAmbassador:
		return r.topAmbassadors(ctx, n)
	case leaderboard.CategoryContest:
		return r.topContest(ctx, periodKey, n)
	case leaderboard.CategoryEngagement:
		return r.topEngagement(ctx, periodKey, n)
	default:
		return nil, leaderboard.ErrUnknownCategory
	}
}

func (r *LeaderboardRepository) topAmbassadors(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	query := `
		SELECT identity, display_name, points
		FROM ambassadors
		ORDER BY points DESC, created_at ASC, identity ASC
		LIMIT $1
	`

	return r.queryEntries(ctx, query, n)
}

func (r *LeaderboardRepository) topContest(ctx context.Context, periodKey string, n int) ([]leaderboard.Entry, error) {
	// The referrer's name was denormalized onto each row at registration;
	// the latest row wins so a link owner who registered late still shows
	// their real name.
	query := `
		SELECT referrer,
		       (array_agg(referrer_display_name ORDER BY created_at DESC, referred ASC))[1],
		       COUNT(*) AS score
		FROM contest_referrals
		WHERE period = $1 AND status = 'completed' AND referrer > 0
		GROUP BY referrer
		ORDER BY score DESC, MIN(created_at) ASC, referrer ASC
		LIMIT $2
	`

	return r.queryEntries(ctx, query, periodKey, n)
}

func (r *LeaderboardRepository) topEngagement(ctx context.Context, periodKey string, n int) ([]leaderboard.Entry, error) {
	query := `
		SELECT identity, display_name, message_count
		FROM engagement
		WHERE period = $1
		ORDER BY message_count DESC, first_message_at ASC, identity ASC
		LIMIT $2
	`

	return r.queryEntries(ctx, query, periodKey, n)
}

func (r *LeaderboardRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]leaderboard.Entry, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	rank := 0
	for rows.Next() {
		var identity int64
		var name string
		var score int
		if err := rows.Scan(&identity, &name, &score); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		rank++
		entries = append(entries, leaderboard.Entry{
			Rank:        rank,
			Identity:    referral.Identity(identity),
			DisplayName: name,
			Score:       score,
		})
	}

	return entries, rows.Err()
}
