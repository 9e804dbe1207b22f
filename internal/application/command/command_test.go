package command

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
	"github.com/cerulean-labs/growth-hub/internal/infrastructure/persistence/memory"
	"github.com/cerulean-labs/growth-hub/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

var testNow = time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)

func TestRegisterAmbassador_CreatesProfile(t *testing.T) {
	store := memory.New()
	h := NewRegisterAmbassadorHandler(store, testLogger())

	res, err := h.Handle(context.Background(), RegisterAmbassadorCommand{
		Identity:    100,
		DisplayName: "Aruzhan",
		Now:         testNow,
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, referral.Identity(100), res.Ambassador.Identity)
	assert.Equal(t, 0, res.Ambassador.Points)
}

func TestRegisterAmbassador_Idempotent(t *testing.T) {
	store := memory.New()
	h := NewRegisterAmbassadorHandler(store, testLogger())

	first, err := h.Handle(context.Background(), RegisterAmbassadorCommand{Identity: 100, DisplayName: "Aruzhan", Now: testNow})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := h.Handle(context.Background(), RegisterAmbassadorCommand{Identity: 100, DisplayName: "Aruzhan", Now: testNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Ambassador.Identity, second.Ambassador.Identity)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisterAmbassador_RejectsInvalidIdentity(t *testing.T) {
	store := memory.New()
	h := NewRegisterAmbassadorHandler(store, testLogger())

	_, err := h.Handle(context.Background(), RegisterAmbassadorCommand{Identity: 0, DisplayName: "x", Now: testNow})
	assert.ErrorIs(t, err, referral.ErrInvalidIdentity)
}

func registerReferralHandler(store *memory.Store) *RegisterReferralHandler {
	return NewRegisterReferralHandler(store, store.Relationships(), store.Contest(), testLogger())
}

func completeTaskHandler(store *memory.Store) *CompleteTaskHandler {
	return NewCompleteTaskHandler(store.Relationships(), store.Contest(), testLogger())
}

func mustRegisterAmbassador(t *testing.T, store *memory.Store, id referral.Identity, name string) {
	t.Helper()
	h := NewRegisterAmbassadorHandler(store, testLogger())
	_, err := h.Handle(context.Background(), RegisterAmbassadorCommand{Identity: id, DisplayName: name, Now: testNow})
	require.NoError(t, err)
}

func TestRegisterReferral_Ambassador_NewPending(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	h := registerReferralHandler(store)

	res, err := h.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200,
		Referrer: 100,
		Kind:     referral.LinkAmbassador,
		Now:      testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, RegistrationNew, res.Status)
	assert.Equal(t, "Aruzhan", res.ReferrerName)

	rel, err := store.Relationships().Get(context.Background(), 200)
	require.NoError(t, err)
	assert.False(t, rel.IsCompleted())
	assert.Equal(t, referral.Identity(100), rel.Referrer)
}

func TestRegisterReferral_SelfReferralRejected(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	h := registerReferralHandler(store)

	_, err := h.Handle(context.Background(), RegisterReferralCommand{
		Referred: 100,
		Referrer: 100,
		Kind:     referral.LinkAmbassador,
		Now:      testNow,
	})
	assert.ErrorIs(t, err, referral.ErrSelfReferral)
}

func TestRegisterReferral_UnknownReferrerRejected(t *testing.T) {
	store := memory.New()
	h := registerReferralHandler(store)

	_, err := h.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200,
		Referrer: 999,
		Kind:     referral.LinkAmbassador,
		Now:      testNow,
	})
	assert.ErrorIs(t, err, referral.ErrInvalidReferrer)
}

func TestRegisterReferral_ReopeningLinkKeepsPending(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	h := registerReferralHandler(store)

	cmd := RegisterReferralCommand{Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow}
	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, RegistrationNew, first.Status)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, RegistrationPending, second.Status)
}

func TestRegisterReferral_Contest_ReplacesStaleMonth(t *testing.T) {
	store := memory.New()
	h := registerReferralHandler(store)
	complete := completeTaskHandler(store)

	july := time.Date(2025, time.July, 5, 10, 0, 0, 0, time.UTC)
	august := time.Date(2025, time.August, 5, 10, 0, 0, 0, time.UTC)

	// July: referred by 100, completed.
	_, err := h.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200, Referrer: 100, DisplayName: "Dana", Kind: referral.LinkContest, Now: july,
	})
	require.NoError(t, err)
	res, err := complete.Handle(context.Background(), CompleteTaskCommand{
		Referred: 200, Referrer: 100, Kind: referral.LinkContest, Now: july,
	})
	require.NoError(t, err)
	require.Equal(t, referral.OutcomeCredited, res.Outcome)

	// August: same identity opens a different referrer's link. The stale
	// July row is replaced and the identity can complete again.
	reg, err := h.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200, Referrer: 300, DisplayName: "Dana", Kind: referral.LinkContest, Now: august,
	})
	require.NoError(t, err)
	assert.Equal(t, RegistrationNew, reg.Status)

	res, err = complete.Handle(context.Background(), CompleteTaskCommand{
		Referred: 200, Referrer: 300, Kind: referral.LinkContest, Now: august,
	})
	require.NoError(t, err)
	assert.Equal(t, referral.OutcomeCredited, res.Outcome)

	julyCount, err := store.Contest().CountCompleted(context.Background(), 100, period.Month(july))
	require.NoError(t, err)
	assert.Equal(t, 0, julyCount, "July credit is gone once the row was replaced")

	augustCount, err := store.Contest().CountCompleted(context.Background(), 300, period.Month(august))
	require.NoError(t, err)
	assert.Equal(t, 1, augustCount)
}

func TestCompleteTask_CreditsExactlyOnce(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	reg := registerReferralHandler(store)
	complete := completeTaskHandler(store)

	_, err := reg.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow,
	})
	require.NoError(t, err)

	first, err := complete.Handle(context.Background(), CompleteTaskCommand{
		Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, referral.OutcomeCredited, first.Outcome)

	second, err := complete.Handle(context.Background(), CompleteTaskCommand{
		Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, referral.OutcomeAlreadyCompleted, second.Outcome)

	amb, err := store.GetByIdentity(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, referral.PointsPerReferral, amb.Points)
}

func TestCompleteTask_ConcurrentPressesYieldOneCredit(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	reg := registerReferralHandler(store)
	complete := completeTaskHandler(store)

	_, err := reg.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow,
	})
	require.NoError(t, err)

	const presses = 32
	outcomes := make([]referral.Outcome, presses)
	var wg sync.WaitGroup
	for i := 0; i < presses; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := complete.Handle(context.Background(), CompleteTaskCommand{
				Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow,
			})
			require.NoError(t, err)
			outcomes[i] = res.Outcome
		}(i)
	}
	wg.Wait()

	credited := 0
	for _, o := range outcomes {
		if o == referral.OutcomeCredited {
			credited++
		}
	}
	assert.Equal(t, 1, credited)

	amb, err := store.GetByIdentity(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, referral.PointsPerReferral, amb.Points)
}

func TestCompleteTask_NoRelationship(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	complete := completeTaskHandler(store)

	res, err := complete.Handle(context.Background(), CompleteTaskCommand{
		Referred: 200, Referrer: 100, Kind: referral.LinkAmbassador, Now: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, referral.OutcomeNoRelationship, res.Outcome)
}

func TestEnsureContestIdentity_KeepsExistingRow(t *testing.T) {
	store := memory.New()
	reg := registerReferralHandler(store)
	ensure := NewEnsureContestIdentityHandler(store.Contest(), testLogger())

	_, err := reg.Handle(context.Background(), RegisterReferralCommand{
		Referred: 200, Referrer: 100, DisplayName: "Dana", Kind: referral.LinkContest, Now: testNow,
	})
	require.NoError(t, err)

	// Requesting an own link later must not erase the pending referral.
	require.NoError(t, ensure.Handle(context.Background(), EnsureContestIdentityCommand{
		Identity: 200, DisplayName: "Dana", Now: testNow,
	}))

	row, err := store.Contest().Get(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, referral.Identity(100), row.Referrer)
	assert.False(t, row.IsCompleted())
}

func TestRecordActivity_ScopedToTrackedChat(t *testing.T) {
	store := memory.New()
	h := NewRecordActivityHandler(store.Engagement(), -1001)

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, RecordActivityCommand{Identity: 1, DisplayName: "a", ChatID: -1001, IsGroup: true, Timestamp: testNow}))
	require.NoError(t, h.Handle(ctx, RecordActivityCommand{Identity: 1, DisplayName: "a", ChatID: -1001, IsGroup: true, Timestamp: testNow}))

	// Wrong chat, private chat and zero identity are ignored.
	require.NoError(t, h.Handle(ctx, RecordActivityCommand{Identity: 1, DisplayName: "a", ChatID: -2002, IsGroup: true, Timestamp: testNow}))
	require.NoError(t, h.Handle(ctx, RecordActivityCommand{Identity: 1, DisplayName: "a", ChatID: -1001, IsGroup: false, Timestamp: testNow}))
	require.NoError(t, h.Handle(ctx, RecordActivityCommand{Identity: 0, DisplayName: "a", ChatID: -1001, IsGroup: true, Timestamp: testNow}))

	entry, err := store.Engagement().Get(ctx, 1, period.Week(testNow))
	require.NoError(t, err)
	assert.Equal(t, 2, entry.MessageCount)
}

func TestRecordActivity_ConcurrentIncrements(t *testing.T) {
	store := memory.New()
	h := NewRecordActivityHandler(store.Engagement(), -1001)

	const messages = 50
	var wg sync.WaitGroup
	for i := 0; i < messages; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.Handle(context.Background(), RecordActivityCommand{
				Identity: 1, DisplayName: "a", ChatID: -1001, IsGroup: true, Timestamp: testNow,
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	entry, err := store.Engagement().Get(context.Background(), 1, period.Week(testNow))
	require.NoError(t, err)
	assert.Equal(t, messages, entry.MessageCount)
}

func TestArchiveWeek_MovesRowsAndClearsCounters(t *testing.T) {
	store := memory.New()
	rec := NewRecordActivityHandler(store.Engagement(), -1001)
	arch := NewArchiveWeekHandler(store.Engagement(), testLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.Handle(ctx, RecordActivityCommand{Identity: 1, DisplayName: "a", ChatID: -1001, IsGroup: true, Timestamp: testNow}))
	}
	require.NoError(t, rec.Handle(ctx, RecordActivityCommand{Identity: 2, DisplayName: "b", ChatID: -1001, IsGroup: true, Timestamp: testNow}))

	res, err := arch.Handle(ctx, ArchiveWeekCommand{Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Archived)
	assert.Equal(t, period.Week(testNow), res.Period)

	// Live counters are gone.
	users, msgs, err := store.Engagement().PeriodStats(ctx, period.Week(testNow))
	require.NoError(t, err)
	assert.Zero(t, users)
	assert.Zero(t, msgs)

	// The archive holds the snapshot, highest count first.
	winners, err := store.TopForPeriod(ctx, engagement.CategoryEngagement, string(period.Week(testNow)), 10)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, referral.Identity(1), winners[0].Identity)
	assert.Equal(t, 3, winners[0].Count)
	assert.Equal(t, engagement.RewardArchived, winners[0].Reward)
}

func TestArchiveWeek_EmptyWeek(t *testing.T) {
	store := memory.New()
	arch := NewArchiveWeekHandler(store.Engagement(), testLogger())

	res, err := arch.Handle(context.Background(), ArchiveWeekCommand{Now: testNow})
	require.NoError(t, err)
	assert.Zero(t, res.Archived)
}

func TestResetAll_WipesEverything(t *testing.T) {
	store := memory.New()
	mustRegisterAmbassador(t, store, 100, "Aruzhan")
	rec := NewRecordActivityHandler(store.Engagement(), -1001)
	require.NoError(t, rec.Handle(context.Background(), RecordActivityCommand{
		Identity: 1, DisplayName: "a", ChatID: -1001, IsGroup: true, Timestamp: testNow,
	}))

	h := NewResetAllHandler(store, testLogger())
	require.NoError(t, h.Handle(context.Background(), ResetAllCommand{RequestedBy: 7}))

	ambs, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ambs)

	users, msgs, err := store.Engagement().PeriodStats(context.Background(), period.Week(testNow))
	require.NoError(t, err)
	assert.Zero(t, users)
	assert.Zero(t, msgs)
}
