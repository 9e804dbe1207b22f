package query

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerulean-labs/growth-hub/internal/application/command"
	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/memory"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

var testNow = time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)

// seedScenario builds a small but complete world: two ambassadors with
// different scores, one pending invite, contest invites for the current
// month and some weekly chatter.
func seedScenario(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	log := testLogger()

	regAmb := command.NewRegisterAmbassadorHandler(store, log)
	regRef := command.NewRegisterReferralHandler(store, store.Relationships(), store.Contest(), log)
	complete := command.NewCompleteTaskHandler(store.Relationships(), store.Contest(), log)
	rec := command.NewRecordActivityHandler(store.Engagement(), -1001)

	for _, a := range []struct {
		id   referral.Identity
		name string
	}{{100, "Aruzhan"}, {101, "Bek"}} {
		_, err := regAmb.Handle(ctx, command.RegisterAmbassadorCommand{Identity: a.id, DisplayName: a.name, Now: testNow})
		require.NoError(t, err)
	}

	// Aruzhan lands two completed invites, Bek one, plus one still pending.
	for _, r := range []struct {
		referred referral.Identity
		referrer referral.Identity
		done     bool
	}{
		{200, 100, true},
		{201, 100, true},
		{202, 101, true},
		{203, 101, false},
	} {
		_, err := regRef.Handle(ctx, command.RegisterReferralCommand{
			Referred: r.referred, Referrer: r.referrer, Kind: referral.LinkAmbassador, Now: testNow,
		})
		require.NoError(t, err)
		if r.done {
			res, err := complete.Handle(ctx, command.CompleteTaskCommand{
				Referred: r.referred, Referrer: r.referrer, Kind: referral.LinkAmbassador, Now: testNow,
			})
			require.NoError(t, err)
			require.Equal(t, referral.OutcomeCredited, res.Outcome)
		}
	}

	// One completed contest invite for Aruzhan this month.
	require.NoError(t, store.EnsureIdentity(ctx, 100, "Aruzhan", period.Month(testNow)))
	_, err := regRef.Handle(ctx, command.RegisterReferralCommand{
		Referred: 300, Referrer: 100, DisplayName: "Dana", Kind: referral.LinkContest, Now: testNow,
	})
	require.NoError(t, err)
	res, err := complete.Handle(ctx, command.CompleteTaskCommand{
		Referred: 300, Referrer: 100, Kind: referral.LinkContest, Now: testNow,
	})
	require.NoError(t, err)
	require.Equal(t, referral.OutcomeCredited, res.Outcome)

	// Weekly chatter: Bek 3 messages, Aruzhan 1.
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.Handle(ctx, command.RecordActivityCommand{
			Identity: 101, DisplayName: "Bek", ChatID: -1001, IsGroup: true, Timestamp: testNow,
		}))
	}
	require.NoError(t, rec.Handle(ctx, command.RecordActivityCommand{
		Identity: 100, DisplayName: "Aruzhan", ChatID: -1001, IsGroup: true, Timestamp: testNow,
	}))
}

func TestGetLeaderboard_AmbassadorOrderAndTieBreak(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	h := NewGetLeaderboardHandler(store, testLogger())

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		Category: leaderboard.CategoryAmbassador,
		Now:      testNow,
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, referral.Identity(100), res.Entries[0].Identity)
	assert.Equal(t, 2, res.Entries[0].Score)
	assert.Equal(t, referral.Identity(101), res.Entries[1].Identity)
	assert.Equal(t, 1, res.Entries[1].Score)
}

func TestGetLeaderboard_TiesKeepRegistrationOrder(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	regAmb := command.NewRegisterAmbassadorHandler(store, testLogger())
	for _, id := range []referral.Identity{5, 3, 9} {
		_, err := regAmb.Handle(ctx, command.RegisterAmbassadorCommand{Identity: id, DisplayName: "m", Now: testNow})
		require.NoError(t, err)
	}

	h := NewGetLeaderboardHandler(store, testLogger())
	res, err := h.Handle(ctx, GetLeaderboardQuery{Category: leaderboard.CategoryAmbassador, Now: testNow})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, referral.Identity(5), res.Entries[0].Identity)
	assert.Equal(t, referral.Identity(3), res.Entries[1].Identity)
	assert.Equal(t, referral.Identity(9), res.Entries[2].Identity)
}

func TestGetLeaderboard_ContestDefaultsToCurrentMonth(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	h := NewGetLeaderboardHandler(store, testLogger())

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		Category: leaderboard.CategoryContest,
		Now:      testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, string(period.Month(testNow)), res.Period)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, referral.Identity(100), res.Entries[0].Identity)
	assert.Equal(t, 1, res.Entries[0].Score)
	assert.Equal(t, "Aruzhan", res.Entries[0].DisplayName)
}

func TestGetLeaderboard_ContestNameReadFromRow(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	log := testLogger()
	regRef := command.NewRegisterReferralHandler(store, store.Relationships(), store.Contest(), log)
	complete := command.NewCompleteTaskHandler(store.Relationships(), store.Contest(), log)

	// Hand-crafted contest link: the referrer never requested one, so no row
	// of their own exists. The ranking must still name them from the value
	// stored on the relationship row.
	_, err := regRef.Handle(ctx, command.RegisterReferralCommand{
		Referred: 300, Referrer: 100, DisplayName: "Dana", Kind: referral.LinkContest, Now: testNow,
	})
	require.NoError(t, err)
	_, err = complete.Handle(ctx, command.CompleteTaskCommand{
		Referred: 300, Referrer: 100, Kind: referral.LinkContest, Now: testNow,
	})
	require.NoError(t, err)

	h := NewGetLeaderboardHandler(store, testLogger())
	res, err := h.Handle(ctx, GetLeaderboardQuery{Category: leaderboard.CategoryContest, Now: testNow})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, referral.Identity(100), res.Entries[0].Identity)
	assert.Equal(t, "Unknown", res.Entries[0].DisplayName)
}

func TestGetLeaderboard_ContestLatestRowWinsName(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	log := testLogger()
	regRef := command.NewRegisterReferralHandler(store, store.Relationships(), store.Contest(), log)
	complete := command.NewCompleteTaskHandler(store.Relationships(), store.Contest(), log)

	invite := func(referred referral.Identity) {
		_, err := regRef.Handle(ctx, command.RegisterReferralCommand{
			Referred: referred, Referrer: 100, Kind: referral.LinkContest, Now: testNow,
		})
		require.NoError(t, err)
		_, err = complete.Handle(ctx, command.CompleteTaskCommand{
			Referred: referred, Referrer: 100, Kind: referral.LinkContest, Now: testNow,
		})
		require.NoError(t, err)
	}

	// First invite lands before the referrer opened their own link, the
	// second after; the board picks up the freshest resolved name.
	invite(300)
	require.NoError(t, store.EnsureIdentity(ctx, 100, "Aruzhan", period.Month(testNow)))
	invite(301)

	h := NewGetLeaderboardHandler(store, testLogger())
	res, err := h.Handle(ctx, GetLeaderboardQuery{Category: leaderboard.CategoryContest, Now: testNow})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 2, res.Entries[0].Score)
	assert.Equal(t, "Aruzhan", res.Entries[0].DisplayName)
}

func TestGetLeaderboard_EngagementDefaultsToCurrentWeek(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	h := NewGetLeaderboardHandler(store, testLogger())

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		Category: leaderboard.CategoryEngagement,
		Now:      testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, string(period.Week(testNow)), res.Period)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, referral.Identity(101), res.Entries[0].Identity)
	assert.Equal(t, 3, res.Entries[0].Score)
}

func TestGetLeaderboard_UnknownCategory(t *testing.T) {
	store := memory.New()
	h := NewGetLeaderboardHandler(store, testLogger())

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{Category: "nope", Now: testNow})
	assert.ErrorIs(t, err, leaderboard.ErrUnknownCategory)
}

func TestGetMemberStats_Ambassador(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	h := NewGetMemberStatsHandler(store, store.Contest(), store.Engagement())

	stats, err := h.Handle(context.Background(), GetMemberStatsQuery{Identity: 100, Now: testNow})
	require.NoError(t, err)
	assert.True(t, stats.IsAmbassador)
	assert.Equal(t, 2, stats.AmbassadorPoints)
	assert.Equal(t, 2, stats.CompletedReferrals)
	assert.Equal(t, 1, stats.ContestReferrals)
	assert.Equal(t, 1, stats.WeeklyMessages)
	assert.Equal(t, period.Week(testNow), stats.WeekPeriod)
	assert.Equal(t, period.Month(testNow), stats.ContestPeriod)
}

func TestGetMemberStats_UnknownMemberReadsAsZero(t *testing.T) {
	store := memory.New()
	h := NewGetMemberStatsHandler(store, store.Contest(), store.Engagement())

	stats, err := h.Handle(context.Background(), GetMemberStatsQuery{Identity: 404, Now: testNow})
	require.NoError(t, err)
	assert.False(t, stats.IsAmbassador)
	assert.Zero(t, stats.AmbassadorPoints)
	assert.Zero(t, stats.ContestReferrals)
	assert.Zero(t, stats.WeeklyMessages)
}

func TestGetAdminReport(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	h := NewGetAdminReportHandler(store, store.Relationships(), store.Contest(), store.Engagement())

	report, err := h.Handle(context.Background(), GetAdminReportQuery{Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ambassadors)
	assert.Equal(t, 3, report.TotalPoints)
	assert.Equal(t, 1, report.PendingReferrals)
	assert.Equal(t, 1, report.ContestCompleted)
	assert.Equal(t, 0, report.ContestPending)
	assert.Equal(t, 2, report.ActiveMembers)
	assert.Equal(t, 4, report.WeeklyMessages)
}

func TestListArchives(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	ctx := context.Background()

	arch := command.NewArchiveWeekHandler(store.Engagement(), testLogger())
	res, err := arch.Handle(ctx, command.ArchiveWeekCommand{Now: testNow})
	require.NoError(t, err)
	require.Equal(t, 2, res.Archived)

	h := NewListArchivesHandler(store)

	periods, err := h.Periods(ctx, ListArchivePeriodsQuery{})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, string(period.Week(testNow)), periods[0])

	winners, err := h.Winners(ctx, GetArchivedWinnersQuery{Period: periods[0]})
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, referral.Identity(101), winners[0].Identity)
	assert.Equal(t, 3, winners[0].Count)
	assert.Equal(t, engagement.RewardArchived, winners[0].Reward)
}

func TestExportData_SnapshotsEveryTable(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	h := NewExportDataHandler(store, store.Relationships(), store.Contest(), store.Engagement())

	snap, err := h.Handle(context.Background(), ExportDataQuery{Now: testNow})
	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", snap.BatchID.String())
	assert.Len(t, snap.Ambassadors, 2)
	assert.Len(t, snap.Relationships, 4)
	// Aruzhan's owner row plus Dana's completed invite.
	assert.Len(t, snap.Contest, 2)
	assert.Len(t, snap.Engagement, 2)
	assert.Equal(t, 10, snap.Rows())
}
