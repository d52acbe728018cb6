package model

import "time"

// Vote is one user's confirm/dispute verdict on an event. There is at
// most one vote per (user, event) pair; a second vote from the same
// user replaces the first.
type Vote struct {
	UserID      string       `json:"user_id"`
	EventID     string       `json:"event_id"`
	VoteType    VoteType     `json:"vote_type"`
	TrustWeight float64      `json:"trust_weight"` // Voter trust score snapshotted at vote time
	Timestamp   time.Time    `json:"timestamp"`
	Location    *Coordinates `json:"location,omitempty"`
	// Meters from the event, if the caller already measured it.
	// When absent and Location is set, the engine computes it.
	DistanceFromEvent *float64 `json:"distance_from_event,omitempty"`
}

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteConfirm VoteType = "confirm"
	VoteDispute VoteType = "dispute"
)

// Verdict is the aggregate outcome of consensus over an event's votes.
type Verdict string

const (
	VerdictConfirm   Verdict = "confirm"
	VerdictDispute   Verdict = "dispute"
	VerdictUndecided Verdict = "undecided"
)

// ConsensusResult is the derived verdict for one event. It is
// recomputed whenever the vote set changes and never persisted.
type ConsensusResult struct {
	Consensus  Verdict `json:"consensus"`
	Confidence float64 `json:"confidence"`

	WeightedConfirmScore float64 `json:"weighted_confirm_score"`
	WeightedDisputeScore float64 `json:"weighted_dispute_score"`

	DistanceAdjustedConfirmScore float64 `json:"distance_adjusted_confirm_score"`
	DistanceAdjustedDisputeScore float64 `json:"distance_adjusted_dispute_score"`

	TotalVotes   int `json:"total_votes"`
	ConfirmVotes int `json:"confirm_votes"`
	DisputeVotes int `json:"dispute_votes"`

	Anomalies []Anomaly `json:"anomalies,omitempty"` // Advisory flags; never alter the verdict
}

// AnomalyStrings returns the human-readable descriptors in order.
func (r ConsensusResult) AnomalyStrings() []string {
	out := make([]string, 0, len(r.Anomalies))
	for _, a := range r.Anomalies {
		out = append(out, a.Description)
	}
	return out
}

// Anomaly is a suspicious-pattern flag raised by the collusion
// detector, with transparent supporting data.
type Anomaly struct {
	Type        AnomalyType     `json:"type"`
	Severity    AnomalySeverity `json:"severity"`
	Description string          `json:"description"`
	Data        map[string]any  `json:"data,omitempty"`
}

// AnomalyType classifies the detection that fired.
type AnomalyType string

const (
	AnomalyLowTrustFlood    AnomalyType = "low_trust_flood"
	AnomalyTimingCluster    AnomalyType = "timing_cluster"
	AnomalyLocationCluster  AnomalyType = "location_cluster"
	AnomalyEndorsementCycle AnomalyType = "endorsement_cycle"
)

// AnomalySeverity indicates how strongly the pattern suggests abuse.
type AnomalySeverity string

const (
	AnomalyInfo     AnomalySeverity = "info"
	AnomalyWarning  AnomalySeverity = "warning"
	AnomalyCritical AnomalySeverity = "critical"
)
