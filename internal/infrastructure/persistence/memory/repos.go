package memory

import (
	"context"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/period"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

// The Store itself satisfies referral.AmbassadorRepository,
// engagement.ArchiveRepository and leaderboard.Ranker. The remaining ports
// collide on method names, so they are exposed as views over the same store.

// RelationshipRepo is the referral.RelationshipRepository view.
type RelationshipRepo struct{ s *Store }

// Relationships returns the lifetime relationship view.
func (s *Store) Relationships() *RelationshipRepo { return &RelationshipRepo{s: s} }

func (r *RelationshipRepo) Get(ctx context.Context, referred referral.Identity) (*referral.AmbassadorReferral, error) {
	return r.s.Get(ctx, referred)
}

func (r *RelationshipRepo) CreatePending(ctx context.Context, referred, referrer referral.Identity, joinedAt time.Time) error {
	return r.s.CreatePending(ctx, referred, referrer, joinedAt)
}

func (r *RelationshipRepo) CompleteAndCredit(ctx context.Context, referred, referrer referral.Identity, reward int) (referral.Outcome, error) {
	return r.s.CompleteAndCredit(ctx, referred, referrer, reward)
}

func (r *RelationshipRepo) ListAll(ctx context.Context) ([]*referral.AmbassadorReferral, error) {
	return r.s.ListAllRelationships(ctx)
}

// ContestRepo is the referral.ContestRepository view.
type ContestRepo struct{ s *Store }

// Contest returns the monthly contest view.
func (s *Store) Contest() *ContestRepo { return &ContestRepo{s: s} }

func (r *ContestRepo) Get(ctx context.Context, referred referral.Identity) (*referral.ContestReferral, error) {
	return r.s.GetContest(ctx, referred)
}

func (r *ContestRepo) GetForPeriod(ctx context.Context, referred referral.Identity, p period.MonthKey) (*referral.ContestReferral, error) {
	return r.s.GetForPeriod(ctx, referred, p)
}

func (r *ContestRepo) UpsertPending(ctx context.Context, row *referral.ContestReferral) error {
	return r.s.UpsertPending(ctx, row)
}

func (r *ContestRepo) EnsureIdentity(ctx context.Context, identity referral.Identity, displayName string, p period.MonthKey) error {
	return r.s.EnsureIdentity(ctx, identity, displayName, p)
}

func (r *ContestRepo) Complete(ctx context.Context, referred referral.Identity, p period.MonthKey, completedAt time.Time) (referral.Outcome, error) {
	return r.s.Complete(ctx, referred, p, completedAt)
}

func (r *ContestRepo) CountCompleted(ctx context.Context, referrer referral.Identity, p period.MonthKey) (int, error) {
	return r.s.CountCompleted(ctx, referrer, p)
}

func (r *ContestRepo) ListAll(ctx context.Context) ([]*referral.ContestReferral, error) {
	return r.s.ListAllContest(ctx)
}

// EngagementRepo is the engagement.Repository view.
type EngagementRepo struct{ s *Store }

// Engagement returns the weekly counter view.
func (s *Store) Engagement() *EngagementRepo { return &EngagementRepo{s: s} }

func (r *EngagementRepo) RecordMessage(ctx context.Context, identity referral.Identity, displayName string, p period.WeekKey, at time.Time) error {
	return r.s.RecordMessage(ctx, identity, displayName, p, at)
}

func (r *EngagementRepo) Get(ctx context.Context, identity referral.Identity, p period.WeekKey) (*engagement.Entry, error) {
	return r.s.GetEngagement(ctx, identity, p)
}

func (r *EngagementRepo) PeriodStats(ctx context.Context, p period.WeekKey) (int, int, error) {
	return r.s.PeriodStats(ctx, p)
}

func (r *EngagementRepo) ArchiveAndReset(ctx context.Context, p period.WeekKey, awardedAt time.Time) (int, error) {
	return r.s.ArchiveAndReset(ctx, p, awardedAt)
}

func (r *EngagementRepo) ListAll(ctx context.Context) ([]*engagement.Entry, error) {
	return r.s.ListAllEngagement(ctx)
}
