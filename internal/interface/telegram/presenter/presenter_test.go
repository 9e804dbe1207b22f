package presenter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
)

func TestFormatRank(t *testing.T) {
	assert.Equal(t, "🥇", FormatRank(1))
	assert.Equal(t, "🥈", FormatRank(2))
	assert.Equal(t, "🥉", FormatRank(3))
	assert.Equal(t, "4.", FormatRank(4))
	assert.Equal(t, "10.", FormatRank(10))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &amp; b", EscapeHTML("a & b"))
	assert.Equal(t, "&lt;script&gt;", EscapeHTML("<script>"))
	assert.Equal(t, "plain_name", EscapeHTML("plain_name"))
}

func TestFormatBoard_Ambassador(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatBoard(&query.LeaderboardResult{
		Category: leaderboard.CategoryAmbassador,
		Entries: []leaderboard.Entry{
			{Rank: 1, DisplayName: "alice", Score: 30},
			{Rank: 2, DisplayName: "bob", Score: 10},
		},
	})

	assert.Contains(t, view.Text, "👑 Ambassador Leaderboard")
	assert.Contains(t, view.Text, "🥇 @alice - 30 pts")
	assert.Contains(t, view.Text, "🥈 @bob - 10 pts")
}

func TestFormatBoard_ContestIncludesPeriod(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatBoard(&query.LeaderboardResult{
		Category: leaderboard.CategoryContest,
		Period:   "2026-08",
		Entries: []leaderboard.Entry{
			{Rank: 1, DisplayName: "carol", Score: 5},
		},
	})

	assert.Contains(t, view.Text, "🎁 Monthly Referral Contest (2026-08)")
	assert.Contains(t, view.Text, "🥇 @carol - 5 referrals")
}

func TestFormatBoard_EngagementIncludesPeriod(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatBoard(&query.LeaderboardResult{
		Category: leaderboard.CategoryEngagement,
		Period:   "2026-W35",
		Entries: []leaderboard.Entry{
			{Rank: 1, DisplayName: "dave", Score: 42},
		},
	})

	assert.Contains(t, view.Text, "💬 Weekly Engagement (2026-W35)")
	assert.Contains(t, view.Text, "🥇 @dave - 42 messages")
}

func TestFormatBoard_EmptyBoards(t *testing.T) {
	p := NewLeaderboardPresenter()

	cases := []struct {
		category leaderboard.Category
		want     string
	}{
		{leaderboard.CategoryAmbassador, "🏆 No ambassadors yet!"},
		{leaderboard.CategoryContest, "No referrals yet this month!"},
		{leaderboard.CategoryEngagement, "No activity yet this week!"},
	}
	for _, tc := range cases {
		view := p.FormatBoard(&query.LeaderboardResult{Category: tc.category})
		assert.Contains(t, view.Text, tc.want)
	}
}

func TestFormatBoard_EscapesDisplayNames(t *testing.T) {
	p := NewLeaderboardPresenter()

	view := p.FormatBoard(&query.LeaderboardResult{
		Category: leaderboard.CategoryAmbassador,
		Entries: []leaderboard.Entry{
			{Rank: 1, DisplayName: "<evil>", Score: 1},
		},
	})

	assert.Contains(t, view.Text, "@&lt;evil&gt;")
	assert.NotContains(t, view.Text, "<evil>")
}

func TestFormatArchiveDetail(t *testing.T) {
	p := NewLeaderboardPresenter()

	text := p.FormatArchiveDetail("2026-W34", []*engagement.WinnerRecord{
		{DisplayName: "alice", Count: 99},
		{DisplayName: "bob", Count: 50},
	})

	assert.Contains(t, text, "📂 Archived: 2026-W34")
	assert.Contains(t, text, "🥇 @alice - 99 messages")
	assert.Contains(t, text, "🥈 @bob - 50 messages")
}

func TestFormatArchiveDetail_Empty(t *testing.T) {
	p := NewLeaderboardPresenter()

	text := p.FormatArchiveDetail("2026-W34", nil)
	assert.Equal(t, "📂 No data for 2026-W34", text)
}

func TestMainMenuKeyboard(t *testing.T) {
	b := NewKeyboardBuilder(CommunityLinks{})

	kb := b.MainMenuKeyboard()
	require.Len(t, kb.Rows, 4)
	assert.Equal(t, "become_amb", kb.Rows[0][0].CallbackData)
	assert.Equal(t, "get_ref", kb.Rows[1][0].CallbackData)
	assert.Equal(t, "my_stats", kb.Rows[2][0].CallbackData)
	assert.Equal(t, "leaderboards", kb.Rows[3][0].CallbackData)
}

func TestTaskKeyboards(t *testing.T) {
	links := CommunityLinks{
		Telegram: "https://t.me/ceruleanlabsgroupchat",
		X:        "https://x.com/ceruleanlabs",
	}
	b := NewKeyboardBuilder(links)

	amb := b.AmbassadorTaskKeyboard(123)
	require.Len(t, amb.Rows, 3)
	assert.Equal(t, links.Telegram, amb.Rows[0][0].URL)
	assert.Equal(t, links.X, amb.Rows[1][0].URL)
	assert.Equal(t, "amb_done_123", amb.Rows[2][0].CallbackData)

	ref := b.ContestTaskKeyboard(456)
	require.Len(t, ref.Rows, 3)
	assert.Equal(t, "ref_done_456", ref.Rows[2][0].CallbackData)
}

func TestLeaderboardMenuKeyboard(t *testing.T) {
	b := NewKeyboardBuilder(CommunityLinks{})

	kb := b.LeaderboardMenuKeyboard()
	require.Len(t, kb.Rows, 3)
	assert.Equal(t, "lb_amb", kb.Rows[0][0].CallbackData)
	assert.Equal(t, "lb_ref", kb.Rows[1][0].CallbackData)
	assert.Equal(t, "lb_eng", kb.Rows[2][0].CallbackData)
}

func TestResetConfirmKeyboard(t *testing.T) {
	b := NewKeyboardBuilder(CommunityLinks{})

	kb := b.ResetConfirmKeyboard()
	require.Len(t, kb.Rows, 2)
	assert.Equal(t, "confirm_reset", kb.Rows[0][0].CallbackData)
	assert.Equal(t, "cancel_reset", kb.Rows[1][0].CallbackData)
}

func TestArchiveListKeyboard_CapsAtTen(t *testing.T) {
	b := NewKeyboardBuilder(CommunityLinks{})

	periods := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		periods = append(periods, fmt.Sprintf("2026-W%02d", 40-i))
	}
	kb := b.ArchiveListKeyboard(periods)

	require.Len(t, kb.Rows, 10)
	assert.Equal(t, "archive_"+periods[0], kb.Rows[0][0].CallbackData)
	assert.Equal(t, "Week "+periods[0], kb.Rows[0][0].Text)
}
