// Package referral contains the attribution domain: ambassadors with
// permanent point totals, their lifetime referral relationships, and the
// month-scoped contest referrals. Two independent namespaces share one
// relationship shape (no_relationship -> pending -> completed); an identity
// may hold a row in both at the same time.
package referral

import (
	"time"

	"github.com/cerulean-labs/growth-hub/internal/domain/period"
)

// Identity is the opaque numeric user identifier assigned by the messaging
// platform. It is the only form of identity the system trusts.
type Identity int64

// PointsPerReferral is the fixed reward credited to an ambassador for each
// verified completed referral.
const PointsPerReferral = 1

// Status is the state of a referral relationship.
type Status string

const (
	// StatusPending means the referred identity opened the link but has not
	// finished the tasks yet.
	StatusPending Status = "pending"

	// StatusCompleted is terminal: the tasks were verified and the referrer
	// was credited (or, for contest rows, counts toward the monthly total).
	StatusCompleted Status = "completed"
)

// Ambassador is a self-registered member of the permanent referral program.
// Points only ever increase, except on a full reset.
type Ambassador struct {
	Identity    Identity
	DisplayName string
	Points      int
	CreatedAt   time.Time
}

// NewAmbassador creates a fresh ambassador profile with zero points.
func NewAmbassador(identity Identity, displayName string, now time.Time) (*Ambassador, error) {
	if identity <= 0 {
		return nil, ErrInvalidIdentity
	}
	return &Ambassador{
		Identity:    identity,
		DisplayName: displayName,
		Points:      0,
		CreatedAt:   now,
	}, nil
}

// AmbassadorReferral is a lifetime relationship between a referred identity
// and the ambassador whose link they opened. One row per referred identity
// for the lifetime of the program; the pending -> completed transition
// happens exactly once.
type AmbassadorReferral struct {
	Referred Identity
	Referrer Identity
	Status   Status
	JoinedAt time.Time
}

// IsCompleted reports whether the relationship reached its terminal state.
func (r *AmbassadorReferral) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// ContestReferral is a month-scoped referral relationship. At most one row
// exists per referred identity; a new month replaces the previous row, which
// is what allows perpetual monthly re-participation.
type ContestReferral struct {
	Referred Identity
	Referrer Identity

	// DisplayName is the referred identity's name.
	DisplayName string

	// ReferrerName is the referrer's name as resolved when the row was
	// registered. Rankings read it straight off the row; they never join
	// back to the referrer's own row.
	ReferrerName string

	Status      Status
	CompletedAt *time.Time
	Period      period.MonthKey
}

// IsCompleted reports whether the row is completed for its period.
func (r *ContestReferral) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// ValidatePair rejects pairs that can never form a relationship.
func ValidatePair(referred, referrer Identity) error {
	if referred <= 0 || referrer <= 0 {
		return ErrInvalidIdentity
	}
	if referred == referrer {
		return ErrSelfReferral
	}
	return nil
}
