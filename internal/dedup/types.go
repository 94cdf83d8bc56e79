package dedup

import "time"

// MatchType is the classification tier of a duplicate-candidate pair.
type MatchType string

const (
	MatchHard   MatchType = "hard"
	MatchStrong MatchType = "strong"
	MatchFuzzy  MatchType = "fuzzy"
	MatchReview MatchType = "review"
	// MatchNone means the pair scored below the surfacing floor.
	MatchNone MatchType = ""
)

// SeverityRank orders tiers for queue presentation, lower is more severe.
func SeverityRank(t MatchType) int {
	switch t {
	case MatchHard:
		return 0
	case MatchStrong:
		return 1
	case MatchFuzzy:
		return 2
	case MatchReview:
		return 3
	default:
		return 4
	}
}

// Reason types attached to a classified pair.
const (
	ReasonEmail    = "email_match"
	ReasonLinkedIn = "linkedin_match"
	ReasonPhone    = "phone_match"
	ReasonName     = "name_similarity"
	ReasonResume   = "resume_similarity"
	ReasonCompany  = "company_overlap"
)

// Reason is one independent signal that fired for a pair. Pairs always
// carry the full list so the reviewer sees why, never just the number.
type Reason struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Detail     string  `json:"detail,omitempty"`
}

// Status is the merge-queue workflow state of a pair.
type Status string

const (
	StatusPending  Status = "pending"
	StatusMerged   Status = "merged"
	StatusRejected Status = "rejected"
	StatusDeferred Status = "deferred"
)

// Pair is a flagged duplicate-candidate pair. The (primary, duplicate)
// ids are stored as an unordered pair: detection and suppression both key
// on the sorted id tuple.
type Pair struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PrimaryID   string    `json:"primary_id"`
	DuplicateID string    `json:"duplicate_id"`
	Score       float64   `json:"score"`
	MatchType   MatchType `json:"match_type"`
	Reasons     []Reason  `json:"reasons"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	// EnqueuedAt drives queue ordering; deferring a pair resets it so the
	// pair returns to the back of the queue.
	EnqueuedAt time.Time  `json:"enqueued_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Employment is one employer stint used by the company-overlap signal.
type Employment struct {
	Company   string
	StartYear int
	EndYear   int // 0 means ongoing
}

// Identity is the slice of a candidate record the detector compares.
type Identity struct {
	ID          string
	TenantID    string
	Name        string
	Email       string
	Phone       string
	LinkedIn    string
	Employments []Employment
	CreatedAt   time.Time
}
