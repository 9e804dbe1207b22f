package referral

import "github.com/cerulean-labs/growth-hub/internal/domain/shared"

// Ambassador program errors.
var (
	// ErrInvalidIdentity is returned for non-positive platform identities.
	ErrInvalidIdentity = shared.NewDomainError("referral", "Validate", shared.ErrInvalidID, "invalid identity")

	// ErrSelfReferral is returned when an identity opens its own link.
	// Always a rejection; no row is ever created.
	ErrSelfReferral = shared.NewDomainError("referral", "Validate", shared.ErrValidation, "cannot use own referral link")

	// ErrInvalidReferrer is returned when the referrer has no ambassador record.
	ErrInvalidReferrer = shared.NewDomainError("ambassador", "Register", shared.ErrValidation, "referrer is not an ambassador")

	// ErrAmbassadorExists is returned on duplicate self-registration.
	ErrAmbassadorExists = shared.NewDomainError("ambassador", "Create", shared.ErrAlreadyExists, "ambassador already registered")

	// ErrAmbassadorNotFound is returned when no ambassador row exists.
	ErrAmbassadorNotFound = shared.NewDomainError("ambassador", "Find", shared.ErrNotFound, "ambassador not found")

	// ErrRelationshipExists is returned when a pending relationship is
	// re-registered. Informational; callers treat it as a no-op.
	ErrRelationshipExists = shared.NewDomainError("referral", "Register", shared.ErrAlreadyExists, "relationship already registered")

	// ErrRelationshipNotFound is returned when no relationship row exists.
	ErrRelationshipNotFound = shared.NewDomainError("referral", "Find", shared.ErrNotFound, "relationship not found")

	// ErrAlreadyCompleted is returned when completing a terminal relationship.
	// Informational; the referrer keeps exactly one credit.
	ErrAlreadyCompleted = shared.NewDomainError("referral", "Complete", shared.ErrAlreadyProcessed, "tasks already completed")
)
