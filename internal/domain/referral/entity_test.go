package referral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerulean-labs/growth-hub/internal/domain/shared"
)

func TestNewAmbassador(t *testing.T) {
	now := time.Now()

	a, err := NewAmbassador(101, "alice", now)
	require.NoError(t, err)
	assert.Equal(t, Identity(101), a.Identity)
	assert.Equal(t, "alice", a.DisplayName)
	assert.Zero(t, a.Points)
	assert.Equal(t, now, a.CreatedAt)
}

func TestNewAmbassador_InvalidIdentity(t *testing.T) {
	// The same sentinel every other validation path returns, so callers can
	// match with errors.Is regardless of which layer rejected the identity.
	_, err := NewAmbassador(0, "nobody", time.Now())
	assert.ErrorIs(t, err, ErrInvalidIdentity)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewAmbassador(-5, "nobody", time.Now())
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestValidatePair(t *testing.T) {
	assert.NoError(t, ValidatePair(1, 2))

	err := ValidatePair(7, 7)
	assert.ErrorIs(t, err, ErrSelfReferral)
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.ErrorIs(t, ValidatePair(0, 2), ErrInvalidIdentity)
	assert.ErrorIs(t, ValidatePair(1, -1), ErrInvalidIdentity)
}

func TestStatusTransitions(t *testing.T) {
	r := &AmbassadorReferral{Referred: 2, Referrer: 1, Status: StatusPending}
	assert.False(t, r.IsCompleted())

	r.Status = StatusCompleted
	assert.True(t, r.IsCompleted())
}

func TestErrorTaxonomy(t *testing.T) {
	// Validation errors are rejections; conflicts are informational.
	assert.True(t, shared.IsValidation(ErrSelfReferral))
	assert.True(t, shared.IsValidation(ErrInvalidReferrer))
	assert.True(t, shared.IsConflict(ErrAlreadyCompleted))
	assert.True(t, shared.IsConflict(ErrRelationshipExists))
	assert.False(t, shared.IsConflict(ErrSelfReferral))
}
