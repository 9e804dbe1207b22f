package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS HANDLER
// Handles /stats and the my_stats menu button: the per-member view across all
// three tracks. Sections the member has no activity in are omitted entirely.
// ══════════════════════════════════════════════════════════════════════════════

// StatsHandler shows a member their own standing.
type StatsHandler struct {
	stats *query.GetMemberStatsHandler
	links *LinkBuilder
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *query.GetMemberStatsHandler, links *LinkBuilder) *StatsHandler {
	return &StatsHandler{stats: stats, links: links}
}

// StatsRequest identifies the member.
type StatsRequest struct {
	TelegramID int64
}

// Handle builds the stats view.
func (h *StatsHandler) Handle(ctx context.Context, req StatsRequest) (*Response, error) {
	stats, err := h.stats.Handle(ctx, query.GetMemberStatsQuery{
		Identity: referral.Identity(req.TelegramID),
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Your Statistics</b>\n\n")
	empty := sb.Len()

	if stats.IsAmbassador {
		sb.WriteString("👑 <b>Ambassador Program</b>\n")
		sb.WriteString(fmt.Sprintf("⭐ Points: %d\n", stats.AmbassadorPoints))
		sb.WriteString(fmt.Sprintf("🎯 Referrals: %d\n", stats.CompletedReferrals))
		sb.WriteString(fmt.Sprintf("🔗 Link: <code>%s</code>\n\n", h.links.AmbassadorLink(req.TelegramID)))
	}

	if stats.ContestReferrals > 0 || !stats.IsAmbassador {
		sb.WriteString("🎁 <b>Referral Contest (This Month)</b>\n")
		sb.WriteString(fmt.Sprintf("👥 Referrals: %d\n", stats.ContestReferrals))
		sb.WriteString(fmt.Sprintf("🔗 Link: <code>%s</code>\n\n", h.links.ContestLink(req.TelegramID)))
	}

	if stats.WeeklyMessages > 0 {
		sb.WriteString("💬 <b>Group Engagement (This Week)</b>\n")
		sb.WriteString(fmt.Sprintf("📨 Messages: %d\n\n", stats.WeeklyMessages))
	}

	if sb.Len() == empty {
		sb.WriteString("ℹ️ No activity yet. Get started with /start!")
	}

	return &Response{Text: sb.String(), ParseMode: "HTML"}, nil
}
