package handler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/memory"
	"github.com/cerulean-labs/growth-hub/internal/interface/telegram/presenter"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

var testNow = time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)

// env wires the handlers against the in-memory store so tests exercise the
// full path from request to response text.
type env struct {
	store      *memory.Store
	start      *StartHandler
	done       *DoneHandler
	ambassador *BecomeAmbassadorHandler
	reflink    *ReferralLinkHandler
	stats      *StatsHandler
	boards     *LeaderboardHandler
	admin      *AdminHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.New()
	log := testLogger()
	links := NewLinkBuilder("cerulean_growth_bot")
	keyboards := presenter.NewKeyboardBuilder(presenter.CommunityLinks{
		Telegram: "https://t.me/ceruleanlabsgroupchat",
		X:        "https://x.com/ceruleanlabs",
	})
	present := presenter.NewLeaderboardPresenter()

	registerReferral := command.NewRegisterReferralHandler(store, store.Relationships(), store.Contest(), log)
	completeTask := command.NewCompleteTaskHandler(store.Relationships(), store.Contest(), log)

	return &env{
		store: store,
		start: NewStartHandler(registerReferral, keyboards),
		done:  NewDoneHandler(completeTask),
		ambassador: NewBecomeAmbassadorHandler(
			command.NewRegisterAmbassadorHandler(store, log), links),
		reflink: NewReferralLinkHandler(
			command.NewEnsureContestIdentityHandler(store.Contest(), log), links),
		stats: NewStatsHandler(
			query.NewGetMemberStatsHandler(store, store.Contest(), store.Engagement()), links),
		boards: NewLeaderboardHandler(
			query.NewGetLeaderboardHandler(store, log), present, keyboards),
		admin: NewAdminHandler(
			query.NewGetAdminReportHandler(store, store.Relationships(), store.Contest(), store.Engagement()),
			query.NewExportDataHandler(store, store.Relationships(), store.Contest(), store.Engagement()),
			query.NewListArchivesHandler(store),
			command.NewArchiveWeekHandler(store.Engagement(), log),
			command.NewResetAllHandler(store, log),
			keyboards, present, log,
		),
	}
}

func (e *env) registerAmbassador(t *testing.T, id int64, name string) {
	t.Helper()
	_, err := e.ambassador.Handle(context.Background(), BecomeAmbassadorRequest{
		TelegramID:  id,
		DisplayName: name,
	})
	require.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// START
// ─────────────────────────────────────────────────────────────────────────────

func TestStart_PlainShowsMainMenu(t *testing.T) {
	e := newEnv(t)

	resp, err := e.start.Handle(context.Background(), StartRequest{TelegramID: 200, DisplayName: "dana"})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "Welcome to Cerulean Labs")
	assert.Equal(t, "HTML", resp.ParseMode)
	require.NotNil(t, resp.Keyboard)
	assert.Len(t, resp.Keyboard.Rows, 4)
}

func TestStart_AmbassadorDeepLinkShowsTasks(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	resp, err := e.start.Handle(context.Background(), StartRequest{
		TelegramID:    200,
		DisplayName:   "dana",
		DeepLinkParam: "amb_100",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "invited by @aruzhan (Ambassador)")
	require.NotNil(t, resp.Keyboard)
	assert.Equal(t, "amb_done_100", resp.Keyboard.Rows[2][0].CallbackData)
}

func TestStart_ContestDeepLinkShowsTasks(t *testing.T) {
	e := newEnv(t)

	_, err := e.reflink.Handle(context.Background(), ReferralLinkRequest{TelegramID: 100, DisplayName: "aruzhan"})
	require.NoError(t, err)

	resp, err := e.start.Handle(context.Background(), StartRequest{
		TelegramID:    200,
		DisplayName:   "dana",
		DeepLinkParam: "ref_100",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "You've been invited by @aruzhan!")
	require.NotNil(t, resp.Keyboard)
	assert.Equal(t, "ref_done_100", resp.Keyboard.Rows[2][0].CallbackData)
}

func TestStart_SelfReferralRejected(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	resp, err := e.start.Handle(context.Background(), StartRequest{
		TelegramID:    100,
		DisplayName:   "aruzhan",
		DeepLinkParam: "amb_100",
	})
	require.NoError(t, err)
	assert.Equal(t, "⚠️ You cannot use your own referral link!", resp.Text)
	assert.Nil(t, resp.Keyboard)
}

func TestStart_MalformedDeepLink(t *testing.T) {
	e := newEnv(t)

	// The rejection names the flow the link belongs to.
	for _, tc := range []struct {
		param string
		want  string
	}{
		{"amb_abc", "❌ Invalid ambassador referral link."},
		{"amb_-5", "❌ Invalid ambassador referral link."},
		{"ref_", "❌ Invalid referral contest link."},
		{"ref_xyz", "❌ Invalid referral contest link."},
	} {
		resp, err := e.start.Handle(context.Background(), StartRequest{
			TelegramID:    200,
			DeepLinkParam: tc.param,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.Text, tc.param)
	}
}

func TestStart_UnknownAmbassadorRejected(t *testing.T) {
	e := newEnv(t)

	resp, err := e.start.Handle(context.Background(), StartRequest{
		TelegramID:    200,
		DeepLinkParam: "amb_999",
	})
	require.NoError(t, err)
	assert.Equal(t, "❌ Invalid ambassador referral link.", resp.Text)
}

func TestStart_AlreadyCompletedAmbassadorTasks(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	ctx := context.Background()
	_, err := e.start.Handle(ctx, StartRequest{TelegramID: 200, DeepLinkParam: "amb_100"})
	require.NoError(t, err)
	_, err = e.done.Handle(ctx, DoneRequest{TelegramID: 200, ReferrerID: 100, Kind: referral.LinkAmbassador})
	require.NoError(t, err)

	resp, err := e.start.Handle(ctx, StartRequest{TelegramID: 200, DeepLinkParam: "amb_100"})
	require.NoError(t, err)
	assert.Equal(t, "✅ You've already completed ambassador tasks!", resp.Text)
}

// ─────────────────────────────────────────────────────────────────────────────
// DONE CALLBACKS
// ─────────────────────────────────────────────────────────────────────────────

func TestDone_CreditsExactlyOnce(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	ctx := context.Background()
	_, err := e.start.Handle(ctx, StartRequest{TelegramID: 200, DeepLinkParam: "amb_100"})
	require.NoError(t, err)

	first, err := e.done.Handle(ctx, DoneRequest{TelegramID: 200, ReferrerID: 100, Kind: referral.LinkAmbassador})
	require.NoError(t, err)
	assert.Contains(t, first.Text, "🎉 Tasks completed! Thank you for joining!")
	assert.True(t, first.Edit)

	second, err := e.done.Handle(ctx, DoneRequest{TelegramID: 200, ReferrerID: 100, Kind: referral.LinkAmbassador})
	require.NoError(t, err)
	assert.Equal(t, "✅ Already completed!", second.Text)
	assert.True(t, second.Edit)

	// The referrer is credited a single point.
	amb, err := e.store.GetByIdentity(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, referral.PointsPerReferral, amb.Points)
}

func TestDone_ContestVariant(t *testing.T) {
	e := newEnv(t)

	ctx := context.Background()
	_, err := e.reflink.Handle(ctx, ReferralLinkRequest{TelegramID: 100, DisplayName: "aruzhan"})
	require.NoError(t, err)
	_, err = e.start.Handle(ctx, StartRequest{TelegramID: 200, DisplayName: "dana", DeepLinkParam: "ref_100"})
	require.NoError(t, err)

	resp, err := e.done.Handle(ctx, DoneRequest{TelegramID: 200, ReferrerID: 100, Kind: referral.LinkContest})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Your referrer gets credit!")
	assert.True(t, resp.Edit)
}

// ─────────────────────────────────────────────────────────────────────────────
// AMBASSADOR REGISTRATION
// ─────────────────────────────────────────────────────────────────────────────

func TestBecomeAmbassador_NewRegistration(t *testing.T) {
	e := newEnv(t)

	resp, err := e.ambassador.Handle(context.Background(), BecomeAmbassadorRequest{
		TelegramID:  100,
		DisplayName: "aruzhan",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "You're now a Cerulean Labs Ambassador!")
	assert.Contains(t, resp.Text, "https://t.me/cerulean_growth_bot?start=amb_100")
	assert.Equal(t, "HTML", resp.ParseMode)
}

func TestBecomeAmbassador_AlreadyRegistered(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	resp, err := e.ambassador.Handle(context.Background(), BecomeAmbassadorRequest{
		TelegramID:  100,
		DisplayName: "aruzhan",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "You're already an ambassador!")
}

// ─────────────────────────────────────────────────────────────────────────────
// REFERRAL LINK & STATS
// ─────────────────────────────────────────────────────────────────────────────

func TestReferralLink_ReturnsContestLink(t *testing.T) {
	e := newEnv(t)

	resp, err := e.reflink.Handle(context.Background(), ReferralLinkRequest{
		TelegramID:  42,
		DisplayName: "dana",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "https://t.me/cerulean_growth_bot?start=ref_42")
}

func TestStats_FreshUserGetsContestSection(t *testing.T) {
	e := newEnv(t)

	resp, err := e.stats.Handle(context.Background(), StatsRequest{TelegramID: 500})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "Referral Contest (This Month)")
	assert.Contains(t, resp.Text, "👥 Referrals: 0")
	assert.NotContains(t, resp.Text, "Ambassador Program")
}

func TestStats_AmbassadorSeesPointsAndLink(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	ctx := context.Background()
	_, err := e.start.Handle(ctx, StartRequest{TelegramID: 200, DeepLinkParam: "amb_100"})
	require.NoError(t, err)
	_, err = e.done.Handle(ctx, DoneRequest{TelegramID: 200, ReferrerID: 100, Kind: referral.LinkAmbassador})
	require.NoError(t, err)

	resp, err := e.stats.Handle(ctx, StatsRequest{TelegramID: 100})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "Ambassador Program")
	assert.Contains(t, resp.Text, "⭐ Points: 1")
	assert.Contains(t, resp.Text, "🎯 Referrals: 1")
	assert.Contains(t, resp.Text, "https://t.me/cerulean_growth_bot?start=amb_100")
}

// ─────────────────────────────────────────────────────────────────────────────
// LEADERBOARDS
// ─────────────────────────────────────────────────────────────────────────────

func TestLeaderboard_MenuAndBoard(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	ctx := context.Background()
	menu, err := e.boards.Menu(ctx)
	require.NoError(t, err)
	assert.Equal(t, "🏆 Choose a Leaderboard:", menu.Text)
	require.NotNil(t, menu.Keyboard)

	board, err := e.boards.Board(ctx, leaderboard.CategoryAmbassador)
	require.NoError(t, err)
	assert.Contains(t, board.Text, "👑 Ambassador Leaderboard")
	assert.Contains(t, board.Text, "@aruzhan")
}

// ─────────────────────────────────────────────────────────────────────────────
// ADMIN
// ─────────────────────────────────────────────────────────────────────────────

func TestAdmin_Report(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	resp, err := e.admin.Report(context.Background())
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "Admin Report")
	assert.Contains(t, resp.Text, "<b>Ambassadors</b>: 1 total")
	assert.Equal(t, "HTML", resp.ParseMode)
}

func TestAdmin_ExportProducesDocuments(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	resp, err := e.admin.Export(context.Background())
	require.NoError(t, err)

	require.Len(t, resp.Documents, 4)
	for _, doc := range resp.Documents {
		assert.NotEmpty(t, doc.Filename)
		assert.NotEmpty(t, doc.Content)
	}
}

func TestAdmin_ResetFlow(t *testing.T) {
	e := newEnv(t)
	e.registerAmbassador(t, 100, "aruzhan")

	ctx := context.Background()
	confirm, err := e.admin.Reset(ctx)
	require.NoError(t, err)
	assert.Contains(t, confirm.Text, "WARNING: This will delete ALL data!")
	require.NotNil(t, confirm.Keyboard)
	assert.Equal(t, "confirm_reset", confirm.Keyboard.Rows[0][0].CallbackData)

	// Cancelling leaves the data alone.
	cancel, err := e.admin.CancelReset(ctx)
	require.NoError(t, err)
	assert.Contains(t, cancel.Text, "Reset cancelled")
	all, err := e.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	done, err := e.admin.ConfirmReset(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, done.Text, "completely reset")
	assert.True(t, done.Edit)

	all, err = e.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAdmin_ResetWeeklyAndArchives(t *testing.T) {
	e := newEnv(t)

	ctx := context.Background()
	rec := command.NewRecordActivityHandler(e.store.Engagement(), -1001)
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.Handle(ctx, command.RecordActivityCommand{
			Identity: 100, DisplayName: "aruzhan", ChatID: -1001, IsGroup: true, Timestamp: testNow,
		}))
	}

	// Before any archive exists the list is empty.
	empty, err := e.admin.Archives(ctx)
	require.NoError(t, err)
	assert.Equal(t, "📂 No archived weeks yet.", empty.Text)

	arch := command.NewArchiveWeekHandler(e.store.Engagement(), testLogger())
	week := period.Week(testNow)
	_, err = arch.Handle(ctx, command.ArchiveWeekCommand{Period: week, Now: testNow})
	require.NoError(t, err)

	list, err := e.admin.Archives(ctx)
	require.NoError(t, err)
	require.NotNil(t, list.Keyboard)
	assert.Equal(t, "archive_"+week.String(), list.Keyboard.Rows[0][0].CallbackData)

	detail, err := e.admin.ArchiveDetail(ctx, week.String())
	require.NoError(t, err)
	assert.Contains(t, detail.Text, "📂 Archived: "+week.String())
	assert.Contains(t, detail.Text, "🥇 @aruzhan - 3 messages")
	assert.True(t, detail.Edit)
}

func TestAdmin_ResetWeeklyReply(t *testing.T) {
	e := newEnv(t)

	resp, err := e.admin.ResetWeekly(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Weekly engagement reset for")
	assert.Contains(t, resp.Text, "archived to winners table")
}
