// Package memory implements every repository port on an in-process store
// guarded by a single mutex. Each exported operation is one critical section,
// which gives it the same atomicity contract as the Postgres implementation:
// decide-and-write happens as a unit, and concurrent callers observe
// exactly-once transitions. Used by the application-layer tests and by the
// bot's storage-free development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

type ambassadorRow struct {
	amb referral.Ambassador
	seq int64
}

type relationshipRow struct {
	rel referral.AmbassadorReferral
	seq int64
}

type contestRow struct {
	row referral.ContestReferral
	seq int64
}

type engagementKey struct {
	identity referral.Identity
	period   period.WeekKey
}

type engagementRow struct {
	entry engagement.Entry
	seq   int64
}

// Store holds all entity tables. The zero value is not usable; use New.
type Store struct {
	mu sync.Mutex

	ambassadors   map[referral.Identity]*ambassadorRow
	relationships map[referral.Identity]*relationshipRow
	contest       map[referral.Identity]*contestRow
	engagement    map[engagementKey]*engagementRow
	winners       []engagement.WinnerRecord

	seq int64
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.ambassadors = make(map[referral.Identity]*ambassadorRow)
	s.relationships = make(map[referral.Identity]*relationshipRow)
	s.contest = make(map[referral.Identity]*contestRow)
	s.engagement = make(map[engagementKey]*engagementRow)
	s.winners = nil
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// ─────────────────────────────────────────────────────────────────────────────
// referral.AmbassadorRepository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) Create(ctx context.Context, a *referral.Ambassador) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ambassadors[a.Identity]; ok {
		return referral.ErrAmbassadorExists
	}
	s.ambassadors[a.Identity] = &ambassadorRow{amb: *a, seq: s.nextSeq()}
	return nil
}

func (s *Store) GetByIdentity(ctx context.Context, identity referral.Identity) (*referral.Ambassador, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.ambassadors[identity]
	if !ok {
		return nil, referral.ErrAmbassadorNotFound
	}
	amb := row.amb
	return &amb, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*referral.Ambassador, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*ambassadorRow, 0, len(s.ambassadors))
	for _, row := range s.ambassadors {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].amb.Points != rows[j].amb.Points {
			return rows[i].amb.Points > rows[j].amb.Points
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]*referral.Ambassador, len(rows))
	for i, row := range rows {
		amb := row.amb
		out[i] = &amb
	}
	return out, nil
}

func (s *Store) CountCompletedReferrals(ctx context.Context, referrer referral.Identity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, row := range s.relationships {
		if row.rel.Referrer == referrer && row.rel.Status == referral.StatusCompleted {
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// referral.RelationshipRepository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) Get(ctx context.Context, referred referral.Identity) (*referral.AmbassadorReferral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.relationships[referred]
	if !ok {
		return nil, referral.ErrRelationshipNotFound
	}
	rel := row.rel
	return &rel, nil
}

func (s *Store) CreatePending(ctx context.Context, referred, referrer referral.Identity, joinedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relationships[referred]; ok {
		return referral.ErrRelationshipExists
	}
	s.relationships[referred] = &relationshipRow{
		rel: referral.AmbassadorReferral{
			Referred: referred,
			Referrer: referrer,
			Status:   referral.StatusPending,
			JoinedAt: joinedAt,
		},
		seq: s.nextSeq(),
	}
	return nil
}

func (s *Store) CompleteAndCredit(ctx context.Context, referred, referrer referral.Identity, reward int) (referral.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.relationships[referred]
	if !ok || row.rel.Referrer != referrer {
		return referral.OutcomeNoRelationship, nil
	}
	if row.rel.Status == referral.StatusCompleted {
		return referral.OutcomeAlreadyCompleted, nil
	}

	// Both writes happen under the same lock: the transition and the credit
	// are one unit, mirroring the SQL transaction.
	row.rel.Status = referral.StatusCompleted
	if amb, ok := s.ambassadors[referrer]; ok {
		amb.amb.Points += reward
	}
	return referral.OutcomeCredited, nil
}

func (s *Store) ListAllRelationships(ctx context.Context) ([]*referral.AmbassadorReferral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*relationshipRow, 0, len(s.relationships))
	for _, row := range s.relationships {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]*referral.AmbassadorReferral, len(rows))
	for i, row := range rows {
		rel := row.rel
		out[i] = &rel
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// referral.ContestRepository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) GetContest(ctx context.Context, referred referral.Identity) (*referral.ContestReferral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.contest[referred]
	if !ok {
		return nil, referral.ErrRelationshipNotFound
	}
	c := row.row
	return &c, nil
}

func (s *Store) GetForPeriod(ctx context.Context, referred referral.Identity, p period.MonthKey) (*referral.ContestReferral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.contest[referred]
	if !ok || row.row.Period != p {
		return nil, referral.ErrRelationshipNotFound
	}
	c := row.row
	return &c, nil
}

func (s *Store) UpsertPending(ctx context.Context, r *referral.ContestReferral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace-on-conflict: a row from an earlier month is overwritten so the
	// identity can participate again this month.
	s.contest[r.Referred] = &contestRow{row: *r, seq: s.nextSeq()}
	return nil
}

func (s *Store) EnsureIdentity(ctx context.Context, identity referral.Identity, displayName string, p period.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contest[identity]; ok {
		return nil
	}
	s.contest[identity] = &contestRow{
		row: referral.ContestReferral{
			Referred:    identity,
			DisplayName: displayName,
			Status:      referral.StatusCompleted,
			Period:      p,
		},
		seq: s.nextSeq(),
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, referred referral.Identity, p period.MonthKey, completedAt time.Time) (referral.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.contest[referred]
	if !ok || row.row.Period != p {
		return referral.OutcomeNoRelationship, nil
	}
	if row.row.Status == referral.StatusCompleted {
		return referral.OutcomeAlreadyCompleted, nil
	}

	row.row.Status = referral.StatusCompleted
	at := completedAt
	row.row.CompletedAt = &at
	return referral.OutcomeCredited, nil
}

func (s *Store) CountCompleted(ctx context.Context, referrer referral.Identity, p period.MonthKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countCompletedLocked(referrer, p), nil
}

func (s *Store) countCompletedLocked(referrer referral.Identity, p period.MonthKey) int {
	n := 0
	for _, row := range s.contest {
		if row.row.Referrer == referrer && row.row.Period == p && row.row.Status == referral.StatusCompleted {
			n++
		}
	}
	return n
}

func (s *Store) ListAllContest(ctx context.Context) ([]*referral.ContestReferral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*contestRow, 0, len(s.contest))
	for _, row := range s.contest {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]*referral.ContestReferral, len(rows))
	for i, row := range rows {
		c := row.row
		out[i] = &c
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// engagement.Repository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) RecordMessage(ctx context.Context, identity referral.Identity, displayName string, p period.WeekKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := engagementKey{identity: identity, period: p}
	if row, ok := s.engagement[key]; ok {
		row.entry.MessageCount++
		row.entry.DisplayName = displayName
		row.entry.LastActivityAt = at
		return nil
	}
	s.engagement[key] = &engagementRow{
		entry: engagement.Entry{
			Identity:       identity,
			DisplayName:    displayName,
			MessageCount:   1,
			LastActivityAt: at,
			Period:         p,
		},
		seq: s.nextSeq(),
	}
	return nil
}

func (s *Store) GetEngagement(ctx context.Context, identity referral.Identity, p period.WeekKey) (*engagement.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.engagement[engagementKey{identity: identity, period: p}]
	if !ok {
		return nil, engagement.ErrEntryNotFound
	}
	e := row.entry
	return &e, nil
}

func (s *Store) PeriodStats(ctx context.Context, p period.WeekKey) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, messages := 0, 0
	for _, row := range s.engagement {
		if row.entry.Period == p {
			users++
			messages += row.entry.MessageCount
		}
	}
	return users, messages, nil
}

func (s *Store) ArchiveAndReset(ctx context.Context, p period.WeekKey, awardedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot and delete under one lock: an observer never sees rows in
	// both tables, and never sees them in neither.
	rows := make([]*engagementRow, 0)
	for _, row := range s.engagement {
		if row.entry.Period == p {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.MessageCount != rows[j].entry.MessageCount {
			return rows[i].entry.MessageCount > rows[j].entry.MessageCount
		}
		return rows[i].seq < rows[j].seq
	})

	for _, row := range rows {
		s.winners = append(s.winners, engagement.WinnerRecord{
			Category:    engagement.CategoryEngagement,
			Period:      string(p),
			Identity:    row.entry.Identity,
			DisplayName: row.entry.DisplayName,
			Count:       row.entry.MessageCount,
			Reward:      engagement.RewardArchived,
			AwardedAt:   awardedAt,
		})
		delete(s.engagement, engagementKey{identity: row.entry.Identity, period: p})
	}
	return len(rows), nil
}

func (s *Store) ListAllEngagement(ctx context.Context) ([]*engagement.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*engagementRow, 0, len(s.engagement))
	for _, row := range s.engagement {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.Period != rows[j].entry.Period {
			return rows[i].entry.Period > rows[j].entry.Period
		}
		if rows[i].entry.MessageCount != rows[j].entry.MessageCount {
			return rows[i].entry.MessageCount > rows[j].entry.MessageCount
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]*engagement.Entry, len(rows))
	for i, row := range rows {
		e := row.entry
		out[i] = &e
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// engagement.ArchiveRepository
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) ListPeriods(ctx context.Context, category string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var periods []string
	for _, w := range s.winners {
		if w.Category == category && !seen[w.Period] {
			seen[w.Period] = true
			periods = append(periods, w.Period)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	return periods, nil
}

func (s *Store) TopForPeriod(ctx context.Context, category, p string, n int) ([]*engagement.WinnerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*engagement.WinnerRecord
	for i := range s.winners {
		w := s.winners[i]
		if w.Category == category && w.Period == p {
			out = append(out, &w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// leaderboard.Ranker
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) TopN(ctx context.Context, category leaderboard.Category, periodKey string, n int) ([]leaderboard.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []leaderboard.Entry
	switch category {
	case leaderboard.CategoryAmbassador:
		entries = s.topAmbassadorsLocked()
	case leaderboard.CategoryContest:
		entries = s.topContestLocked(period.MonthKey(periodKey))
	case leaderboard.CategoryEngagement:
		entries = s.topEngagementLocked(period.WeekKey(periodKey))
	default:
		return nil, leaderboard.ErrUnknownCategory
	}

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *Store) topAmbassadorsLocked() []leaderboard.Entry {
	rows := make([]*ambassadorRow, 0, len(s.ambassadors))
	for _, row := range s.ambassadors {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].amb.Points != rows[j].amb.Points {
			return rows[i].amb.Points > rows[j].amb.Points
		}
		return rows[i].seq < rows[j].seq
	})

	entries := make([]leaderboard.Entry, len(rows))
	for i, row := range rows {
		entries[i] = leaderboard.Entry{
			Identity:    row.amb.Identity,
			DisplayName: row.amb.DisplayName,
			Score:       row.amb.Points,
		}
	}
	return entries
}

func (s *Store) topContestLocked(p period.MonthKey) []leaderboard.Entry {
	type agg struct {
		count    int
		firstSeq int64
		nameSeq  int64
		name     string
	}
	byReferrer := make(map[referral.Identity]*agg)
	for _, row := range s.contest {
		if row.row.Period != p || row.row.Status != referral.StatusCompleted || row.row.Referrer == 0 {
			continue
		}
		a, ok := byReferrer[row.row.Referrer]
		if !ok {
			a = &agg{firstSeq: row.seq}
			byReferrer[row.row.Referrer] = a
		}
		a.count++
		if row.seq < a.firstSeq {
			a.firstSeq = row.seq
		}
		// The referrer's name is stored on every row at registration; the
		// most recently registered row carries the freshest resolution.
		if row.seq >= a.nameSeq {
			a.nameSeq = row.seq
			a.name = row.row.ReferrerName
		}
	}

	ids := make([]referral.Identity, 0, len(byReferrer))
	for id := range byReferrer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := byReferrer[ids[i]], byReferrer[ids[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.firstSeq < b.firstSeq
	})

	entries := make([]leaderboard.Entry, len(ids))
	for i, id := range ids {
		entries[i] = leaderboard.Entry{
			Identity:    id,
			DisplayName: byReferrer[id].name,
			Score:       byReferrer[id].count,
		}
	}
	return entries
}

func (s *Store) topEngagementLocked(p period.WeekKey) []leaderboard.Entry {
	rows := make([]*engagementRow, 0)
	for _, row := range s.engagement {
		if row.entry.Period == p {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.MessageCount != rows[j].entry.MessageCount {
			return rows[i].entry.MessageCount > rows[j].entry.MessageCount
		}
		return rows[i].seq < rows[j].seq
	})

	entries := make([]leaderboard.Entry, len(rows))
	for i, row := range rows {
		entries[i] = leaderboard.Entry{
			Identity:    row.entry.Identity,
			DisplayName: row.entry.DisplayName,
			Score:       row.entry.MessageCount,
		}
	}
	return entries
}

// ─────────────────────────────────────────────────────────────────────────────
// Full reset
// ─────────────────────────────────────────────────────────────────────────────

// ResetAll clears every table unconditionally. Irreversible.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}
