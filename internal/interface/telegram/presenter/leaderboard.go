// Package presenter formats data for Telegram display.
package presenter

import (
	"fmt"
	"strings"

	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD PRESENTER
// Formats ranked boards for Telegram. All three categories share one medal
// layout; only the header and the score unit differ.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardView contains a formatted board ready to send.
type LeaderboardView struct {
	// Text is the message text.
	Text string

	// Keyboard is the inline keyboard, nil when none is needed.
	Keyboard *InlineKeyboard

	// ParseMode is the parse mode ("HTML" or empty for plain text).
	ParseMode string
}

// LeaderboardPresenter formats leaderboard data for Telegram.
type LeaderboardPresenter struct{}

// NewLeaderboardPresenter creates a new leaderboard presenter.
func NewLeaderboardPresenter() *LeaderboardPresenter {
	return &LeaderboardPresenter{}
}

// FormatBoard formats a ranked board for one category.
func (p *LeaderboardPresenter) FormatBoard(result *query.LeaderboardResult) *LeaderboardView {
	header, unit, empty := p.boardText(result)

	if len(result.Entries) == 0 {
		return &LeaderboardView{Text: header + "\n\n" + empty}
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	for _, entry := range result.Entries {
		sb.WriteString(fmt.Sprintf("%s @%s - %d %s\n",
			FormatRank(entry.Rank),
			EscapeHTML(entry.DisplayName),
			entry.Score,
			unit,
		))
	}

	return &LeaderboardView{Text: sb.String()}
}

// boardText returns the header, score unit and empty-state line per category.
func (p *LeaderboardPresenter) boardText(result *query.LeaderboardResult) (header, unit, empty string) {
	switch result.Category {
	case leaderboard.CategoryAmbassador:
		return "👑 Ambassador Leaderboard", "pts", "🏆 No ambassadors yet!"
	case leaderboard.CategoryContest:
		return fmt.Sprintf("🎁 Monthly Referral Contest (%s)", result.Period),
			"referrals",
			"No referrals yet this month!"
	case leaderboard.CategoryEngagement:
		return fmt.Sprintf("💬 Weekly Engagement (%s)", result.Period),
			"messages",
			"No activity yet this week!"
	default:
		return "🏆 Leaderboard", "pts", "Nothing here yet!"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ARCHIVE VIEW
// ─────────────────────────────────────────────────────────────────────────────

// FormatArchiveDetail formats the winners of one archived week.
func (p *LeaderboardPresenter) FormatArchiveDetail(periodKey string, winners []*engagement.WinnerRecord) string {
	if len(winners) == 0 {
		return fmt.Sprintf("📂 No data for %s", periodKey)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📂 Archived: %s\n\n", periodKey))
	for i, w := range winners {
		sb.WriteString(fmt.Sprintf("%s @%s - %d messages\n",
			FormatRank(i+1),
			EscapeHTML(w.DisplayName),
			w.Count,
		))
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// UTILITY FUNCTIONS
// ─────────────────────────────────────────────────────────────────────────────

// FormatRank returns the medal emoji for the top three, the plain position
// number otherwise.
func FormatRank(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// EscapeHTML escapes HTML special characters for safe display.
func EscapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}
