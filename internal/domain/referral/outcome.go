package referral

// Outcome is the result of a completion attempt. Two concurrent attempts for
// the same relationship yield exactly one OutcomeCredited; the loser sees
// OutcomeAlreadyCompleted.
type Outcome string

const (
	// OutcomeCredited means the pending -> completed transition happened in
	// this call and the referrer was credited.
	OutcomeCredited Outcome = "credited"

	// OutcomeAlreadyCompleted means the relationship was already terminal.
	OutcomeAlreadyCompleted Outcome = "already_completed"

	// OutcomeNoRelationship means no matching pending relationship exists.
	OutcomeNoRelationship Outcome = "no_such_relationship"
)

// LinkKind distinguishes the two referral namespaces.
type LinkKind string

const (
	// LinkAmbassador is the permanent ambassador program link (amb_<id>).
	LinkAmbassador LinkKind = "ambassador"

	// LinkContest is the monthly contest link (ref_<id>).
	LinkContest LinkKind = "contest"
)
