package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/interface/export"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLER
// Handles the operator commands: /report, /export, /reset, /reset_weekly and
// /weekly_archives, plus their callbacks. Admin gating happens in the
// middleware, not here; every method assumes the caller is authorized.
// ══════════════════════════════════════════════════════════════════════════════

// AdminHandler serves the operator surface.
type AdminHandler struct {
	report      *query.GetAdminReportHandler
	exportData  *query.ExportDataHandler
	archives    *query.ListArchivesHandler
	archiveWeek *command.ArchiveWeekHandler
	resetAll    *command.ResetAllHandler
	keyboards   *presenter.KeyboardBuilder
	present     *presenter.LeaderboardPresenter
	log         *logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	report *query.GetAdminReportHandler,
	exportData *query.ExportDataHandler,
	archives *query.ListArchivesHandler,
	archiveWeek *command.ArchiveWeekHandler,
	resetAll *command.ResetAllHandler,
	keyboards *presenter.KeyboardBuilder,
	present *presenter.LeaderboardPresenter,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		report:      report,
		exportData:  exportData,
		archives:    archives,
		archiveWeek: archiveWeek,
		resetAll:    resetAll,
		keyboards:   keyboards,
		present:     present,
		log:         log,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// REPORT
// ─────────────────────────────────────────────────────────────────────────────

// Report builds the one-screen operational summary.
func (h *AdminHandler) Report(ctx context.Context) (*Response, error) {
	report, err := h.report.Handle(ctx, query.GetAdminReportQuery{})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Admin Report</b>\n\n")
	sb.WriteString(fmt.Sprintf("👑 <b>Ambassadors</b>: %d total (%d pts)\n", report.Ambassadors, report.TotalPoints))
	sb.WriteString(fmt.Sprintf("⏳ <b>Pending Ambassador Referrals</b>: %d\n", report.PendingReferrals))
	sb.WriteString(fmt.Sprintf("🎁 <b>Referrals (This Month)</b>: %d completed, %d pending\n", report.ContestCompleted, report.ContestPending))
	sb.WriteString(fmt.Sprintf("💬 <b>Engagement (This Week)</b>: %d users (%d msgs)\n\n", report.ActiveMembers, report.WeeklyMessages))
	sb.WriteString("📋 <b>Detailed Leaderboards:</b>\n")
	sb.WriteString("/ambassador_leaderboard\n")
	sb.WriteString("/referral_leaderboard\n")
	sb.WriteString("/engagement_leaderboard\n\n")
	sb.WriteString("📂 Use /export to download CSV data")

	return &Response{Text: sb.String(), ParseMode: "HTML"}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// EXPORT
// ─────────────────────────────────────────────────────────────────────────────

// Export snapshots every table and returns the CSV attachments.
func (h *AdminHandler) Export(ctx context.Context) (*Response, error) {
	snapshot, err := h.exportData.Handle(ctx, query.ExportDataQuery{})
	if err != nil {
		return nil, err
	}

	files, err := export.BuildFiles(snapshot)
	if err != nil {
		return nil, err
	}

	h.log.Info("export generated",
		logger.String("batch_id", snapshot.BatchID.String()),
		logger.Int("rows", snapshot.Rows()),
	)

	resp := &Response{Text: "📂 Preparing exports... This may take a moment."}
	for _, f := range files {
		resp.Documents = append(resp.Documents, Document{
			Filename: f.Name,
			Content:  f.Content,
			Caption:  f.Caption,
		})
	}
	return resp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FULL RESET
// ─────────────────────────────────────────────────────────────────────────────

// Reset asks for confirmation before wiping anything.
func (h *AdminHandler) Reset(ctx context.Context) (*Response, error) {
	return &Response{
		Text: "⚠️ <b>WARNING: This will delete ALL data!</b>\n\n" +
			"This includes:\n" +
			"• All ambassadors and points\n" +
			"• All referrals\n" +
			"• All engagement data\n" +
			"• All winners history\n\n" +
			"Are you sure?",
		Keyboard:  h.keyboards.ResetConfirmKeyboard(),
		ParseMode: "HTML",
	}, nil
}

// ConfirmReset executes the wipe after the operator confirmed.
func (h *AdminHandler) ConfirmReset(ctx context.Context, adminID int64) (*Response, error) {
	err := h.resetAll.Handle(ctx, command.ResetAllCommand{RequestedBy: adminID})
	if err != nil {
		return nil, err
	}
	return &Response{Text: "🗑 Database has been completely reset.", Edit: true}, nil
}

// CancelReset aborts the reset flow.
func (h *AdminHandler) CancelReset(ctx context.Context) (*Response, error) {
	return &Response{Text: "✅ Reset cancelled. Data is safe.", Edit: true}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// WEEKLY RESET & ARCHIVES
// ─────────────────────────────────────────────────────────────────────────────

// ResetWeekly archives the current week's engagement counters and clears them.
func (h *AdminHandler) ResetWeekly(ctx context.Context, adminID int64) (*Response, error) {
	result, err := h.archiveWeek.Handle(ctx, command.ArchiveWeekCommand{})
	if err != nil {
		return nil, err
	}

	h.log.Info("weekly engagement reset by admin",
		logger.Int64("admin_id", adminID),
		logger.Period(string(result.Period)),
	)

	return &Response{
		Text: fmt.Sprintf(
			"✅ Weekly engagement reset for %s!\nData has been archived to winners table.",
			result.Period,
		),
	}, nil
}

// Archives lists the archived weeks as buttons.
func (h *AdminHandler) Archives(ctx context.Context) (*Response, error) {
	periods, err := h.archives.Periods(ctx, query.ListArchivePeriodsQuery{})
	if err != nil {
		return nil, err
	}

	if len(periods) == 0 {
		return &Response{Text: "📂 No archived weeks yet."}, nil
	}

	return &Response{
		Text:     "📂 Archived Weekly Engagement\n\nSelect a week to view:",
		Keyboard: h.keyboards.ArchiveListKeyboard(periods),
	}, nil
}

// ArchiveDetail shows the winners of one archived week.
func (h *AdminHandler) ArchiveDetail(ctx context.Context, periodKey string) (*Response, error) {
	winners, err := h.archives.Winners(ctx, query.GetArchivedWinnersQuery{
		Period: periodKey,
		Limit:  10,
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Text: h.present.FormatArchiveDetail(periodKey, winners),
		Edit: true,
	}, nil
}
