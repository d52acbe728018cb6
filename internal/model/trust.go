package model

import (
	"math"
	"time"
)

// TrustScore is the current reputation state for a single user.
type TrustScore struct {
	UserID        string            `json:"user_id"`
	Score         float64           `json:"score"`          // Current aggregate trust, always in [0,1]
	PreviousScore float64           `json:"previous_score"` // Value before the last update (for delta reporting)
	Factors       TrustFactors      `json:"factors"`
	LastUpdated   time.Time         `json:"last_updated"`
	History       []TrustHistoryEntry `json:"history,omitempty"` // Append-only audit trail
}

// TrustFactors are the behavioral inputs to trust calculation.
// Ratio factors live in [0,1]; ResponseTime and ContributionFrequency
// are raw readings normalized at calculation time.
type TrustFactors struct {
	ReportingAccuracy     float64  `json:"reporting_accuracy"`
	ConfirmationAccuracy  float64  `json:"confirmation_accuracy"`
	DisputeAccuracy       float64  `json:"dispute_accuracy"`
	ResponseTime          float64  `json:"response_time"`          // Minutes, unbounded on input
	LocationAccuracy      float64  `json:"location_accuracy"`
	ContributionFrequency float64  `json:"contribution_frequency"` // Contributions per week, capped at normalization
	CommunityEndorsement  float64  `json:"community_endorsement"`
	PenaltyScore          float64  `json:"penalty_score"`          // Accumulates on failed actions, never self-decays
	ExpertiseAreas        []string `json:"expertise_areas,omitempty"`
}

// DefaultTrustFactors returns the mid-range factor set assigned to a
// brand-new user. Paired with the 0.5 starting score.
func DefaultTrustFactors() TrustFactors {
	return TrustFactors{
		ReportingAccuracy:     0.5,
		ConfirmationAccuracy:  0.5,
		DisputeAccuracy:       0.5,
		ResponseTime:          30,
		LocationAccuracy:      0.5,
		ContributionFrequency: 1,
		CommunityEndorsement:  0.5,
		PenaltyScore:          0,
	}
}

// FactorsFromUntrusted sanitizes adversarial factor input. Ratio
// factors are clamped to [0,1]; NaN and infinities collapse to 0;
// negative raw readings collapse to 0. The pure scorer can then assume
// its inputs are already in range.
func FactorsFromUntrusted(raw TrustFactors) TrustFactors {
	clean := TrustFactors{
		ReportingAccuracy:     clampRatio(raw.ReportingAccuracy),
		ConfirmationAccuracy:  clampRatio(raw.ConfirmationAccuracy),
		DisputeAccuracy:       clampRatio(raw.DisputeAccuracy),
		ResponseTime:          nonNegative(raw.ResponseTime),
		LocationAccuracy:      clampRatio(raw.LocationAccuracy),
		ContributionFrequency: nonNegative(raw.ContributionFrequency),
		CommunityEndorsement:  clampRatio(raw.CommunityEndorsement),
		PenaltyScore:          clampRatio(raw.PenaltyScore),
	}
	for _, area := range raw.ExpertiseAreas {
		if area != "" {
			clean.ExpertiseAreas = append(clean.ExpertiseAreas, area)
		}
	}
	return clean
}

// HasExpertise reports whether the user carries at least one non-empty
// expertise tag.
func (f TrustFactors) HasExpertise() bool {
	for _, area := range f.ExpertiseAreas {
		if area != "" {
			return true
		}
	}
	return false
}

// HasExpertiseIn reports whether the user's expertise covers the given
// event category.
func (f TrustFactors) HasExpertiseIn(category string) bool {
	if category == "" {
		return false
	}
	for _, area := range f.ExpertiseAreas {
		if area == category {
			return true
		}
	}
	return false
}

// TrustCalculation is the output of the pure scoring function.
type TrustCalculation struct {
	Score      float64 `json:"score"`      // Weighted factor sum, clamped to [0,1]
	Confidence float64 `json:"confidence"` // Mean of data completeness and consistency, in [0,1]
}

// TrustHistoryEntry is an immutable audit record. Created exactly once
// per trust-affecting action, never mutated.
type TrustHistoryEntry struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	EventID       string         `json:"event_id"`
	ActionType    ActionType     `json:"action_type"`
	Change        float64        `json:"change"` // Signed delta applied to the score
	PreviousScore float64        `json:"previous_score"`
	NewScore      float64        `json:"new_score"`
	Reason        string         `json:"reason"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ActionType identifies the kind of trust-affecting action.
type ActionType string

const (
	ActionReport  ActionType = "report"
	ActionConfirm ActionType = "confirm"
	ActionDispute ActionType = "dispute"
)

// Valid reports whether the action type is one of the known kinds.
func (a ActionType) Valid() bool {
	switch a {
	case ActionReport, ActionConfirm, ActionDispute:
		return true
	}
	return false
}

// ActionOutcome classifies how a trust-affecting action turned out.
type ActionOutcome string

const (
	OutcomeSuccess ActionOutcome = "success"
	OutcomeFailure ActionOutcome = "failure"
	OutcomePending ActionOutcome = "pending"
)

// Valid reports whether the outcome is one of the known kinds.
func (o ActionOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomePending:
		return true
	}
	return false
}

// Endorsement is a directed community endorsement between two users.
// Used by the collusion detector to find endorsement rings.
type Endorsement struct {
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func clampRatio(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
