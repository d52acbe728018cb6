// Package consensus folds an event's votes into a single trust- and
// proximity-weighted verdict.
package consensus

import (
	"math"

	"github.com/crowdproof/crowdproof/internal/geo"
	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/sybil"
)

// InsufficientConfidence is the fixed confidence for the empty and
// single-vote cases.
const InsufficientConfidence = 0.1

// Engine computes consensus results. Anomaly inspection is delegated
// to the detector; flags are advisory and never change the verdict.
type Engine struct {
	cfg      model.ConsensusConfig
	detector *sybil.Detector
}

// NewEngine creates a consensus engine. A nil detector disables
// anomaly flagging.
func NewEngine(cfg model.ConsensusConfig, detector *sybil.Detector) *Engine {
	return &Engine{cfg: cfg, detector: detector}
}

// Calculate computes the verdict for an event given its current vote
// set. Deterministic for a fixed vote set; O(n) in vote count. A
// smaller vote set (after partial delivery failures) is a valid input,
// it just produces a lower-confidence result.
func (e *Engine) Calculate(votes []model.Vote, event *model.EmergencyEvent) model.ConsensusResult {
	result := model.ConsensusResult{
		Consensus:  model.VerdictUndecided,
		Confidence: InsufficientConfidence,
		TotalVotes: len(votes),
	}
	if len(votes) == 0 {
		return result
	}

	for _, vote := range votes {
		weight := sanitizeWeight(vote.TrustWeight)
		adjusted := weight * e.proximityFactor(vote, event)

		switch vote.VoteType {
		case model.VoteConfirm:
			result.ConfirmVotes++
			result.WeightedConfirmScore += weight
			result.DistanceAdjustedConfirmScore += adjusted
		case model.VoteDispute:
			result.DisputeVotes++
			result.WeightedDisputeScore += weight
			result.DistanceAdjustedDisputeScore += adjusted
		}
	}

	confirm := result.WeightedConfirmScore
	dispute := result.WeightedDisputeScore

	// A single vote, however trusted, never reaches consensus.
	if len(votes) >= e.cfg.MinVotes {
		result.Consensus = e.verdict(confirm, dispute)
		result.Confidence = e.confidence(confirm, dispute, len(votes))
	}

	if e.detector != nil {
		result.Anomalies = e.detector.Inspect(votes, event)
	}

	return result
}

// verdict compares the weighted sums. Trust weighting, not vote count,
// decides: one voter at 0.95 beats any crowd whose summed weight stays
// below it. A relative margin under TieEpsilon is a near-tie and stays
// undecided.
func (e *Engine) verdict(confirm, dispute float64) model.Verdict {
	total := confirm + dispute
	if total == 0 {
		return model.VerdictUndecided
	}
	if math.Abs(confirm-dispute) <= e.cfg.TieEpsilon*total {
		return model.VerdictUndecided
	}
	if confirm > dispute {
		return model.VerdictConfirm
	}
	return model.VerdictDispute
}

// confidence grows with the margin between the sides, the total weight
// mass, and the vote count. Unanimous high-trust sets land above 0.9;
// a near-even split among several voters stays below 0.7.
func (e *Engine) confidence(confirm, dispute float64, voteCount int) float64 {
	total := confirm + dispute
	if total == 0 {
		return InsufficientConfidence
	}

	margin := math.Abs(confirm-dispute) / total
	mass := math.Min(1, total/3)
	count := math.Min(1, float64(voteCount)/5)

	return clamp01(0.5*margin + 0.3*mass + 0.2*count)
}

// proximityFactor decays a vote's influence with distance from the
// event. Votes with no usable location keep full weight; there is no
// penalty for missing data. The decay is exponential with a floor so
// distant voters still count somewhat.
func (e *Engine) proximityFactor(vote model.Vote, event *model.EmergencyEvent) float64 {
	distance, ok := e.voteDistance(vote, event)
	if !ok {
		return 1
	}
	factor := math.Exp(-distance / e.cfg.DistanceDecayMeters)
	return math.Max(e.cfg.DistanceFloor, factor)
}

func (e *Engine) voteDistance(vote model.Vote, event *model.EmergencyEvent) (float64, bool) {
	if vote.DistanceFromEvent != nil {
		d := *vote.DistanceFromEvent
		if d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0) {
			return d, true
		}
		return 0, false
	}
	if vote.Location == nil || event == nil || event.Location == nil {
		return 0, false
	}
	if !vote.Location.Valid() || !event.Location.Valid() {
		return 0, false
	}
	return geo.Distance(*vote.Location, *event.Location), true
}

// sanitizeWeight normalizes an adversarial trust weight at the
// boundary: NaN, infinities and negatives collapse to 0, values above
// 1 clamp down.
func sanitizeWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return math.Min(1, w)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
