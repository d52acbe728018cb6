package consensus

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/sybil"
)

func newTestEngine() *Engine {
	cfg := model.DefaultConfig()
	return NewEngine(cfg.Consensus, sybil.NewDetector(cfg.Sybil))
}

func testEvent() *model.EmergencyEvent {
	return &model.EmergencyEvent{
		ID:       "event-1",
		Type:     "medical",
		Severity: model.SeverityHigh,
		Location: &model.Coordinates{Latitude: 40.7128, Longitude: -74.0060},
		Status:   model.StatusPending,
	}
}

func vote(userID string, voteType model.VoteType, weight float64, at time.Time) model.Vote {
	return model.Vote{
		UserID:      userID,
		EventID:     "event-1",
		VoteType:    voteType,
		TrustWeight: weight,
		Timestamp:   at,
	}
}

func spread(base time.Time, votes []model.Vote) []model.Vote {
	// Space votes out so the timing-cluster flag stays quiet in tests
	// that are not about timing.
	for i := range votes {
		votes[i].Timestamp = base.Add(time.Duration(i) * 10 * time.Minute)
	}
	return votes
}

func TestCalculate_EmptyVotes(t *testing.T) {
	engine := newTestEngine()

	result := engine.Calculate(nil, testEvent())

	if result.Consensus != model.VerdictUndecided {
		t.Errorf("Expected undecided for empty votes, got %s", result.Consensus)
	}
	if result.Confidence != 0.1 {
		t.Errorf("Expected confidence 0.1 for empty votes, got %f", result.Confidence)
	}
	if result.TotalVotes != 0 {
		t.Errorf("Expected 0 total votes, got %d", result.TotalVotes)
	}
	if len(result.Anomalies) != 0 {
		t.Errorf("Expected no anomalies for empty votes, got %v", result.Anomalies)
	}
}

func TestCalculate_SingleVoteInsufficient(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// One vote at maximum trust still cannot reach consensus.
	result := engine.Calculate([]model.Vote{vote("user-1", model.VoteConfirm, 1.0, base)}, testEvent())

	if result.Consensus != model.VerdictUndecided {
		t.Errorf("Expected undecided for a single vote, got %s", result.Consensus)
	}
	if result.Confidence != 0.1 {
		t.Errorf("Expected confidence 0.1 for a single vote, got %f", result.Confidence)
	}
	if result.WeightedConfirmScore != 1.0 {
		t.Errorf("Expected the vote still counted in weighted score, got %f", result.WeightedConfirmScore)
	}
}

func TestCalculate_WeightedTrustDominance(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{vote("coordinator", model.VoteConfirm, 0.95, base)}
	// Five low-trust disputers summing to 0.75 < 0.95.
	for i := 0; i < 5; i++ {
		votes = append(votes, vote(userN("sock", i), model.VoteDispute, 0.15, base))
	}
	votes = spread(base, votes)

	result := engine.Calculate(votes, testEvent())

	if result.Consensus != model.VerdictConfirm {
		t.Errorf("Expected weighted trust to dominate vote count, got %s", result.Consensus)
	}
	if result.WeightedConfirmScore <= result.WeightedDisputeScore {
		t.Errorf("Expected confirm weight %f > dispute weight %f",
			result.WeightedConfirmScore, result.WeightedDisputeScore)
	}
}

func TestCalculate_UnanimousHighTrust(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	weights := []float64{0.9, 0.85, 0.75, 0.65}
	votes := make([]model.Vote, 0, len(weights))
	for i, w := range weights {
		votes = append(votes, vote(userN("witness", i), model.VoteConfirm, w, base))
	}
	votes = spread(base, votes)

	result := engine.Calculate(votes, testEvent())

	if result.Consensus != model.VerdictConfirm {
		t.Errorf("Expected confirm, got %s", result.Consensus)
	}
	if result.Confidence <= 0.9 {
		t.Errorf("Expected confidence above 0.9 for unanimous high-trust votes, got %f", result.Confidence)
	}
}

func TestCalculate_NearEvenSplitLowConfidence(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		vote("a", model.VoteConfirm, 0.7, base),
		vote("b", model.VoteConfirm, 0.6, base),
		vote("c", model.VoteDispute, 0.65, base),
		vote("d", model.VoteDispute, 0.6, base),
	}
	votes = spread(base, votes)

	result := engine.Calculate(votes, testEvent())

	if result.Confidence >= 0.7 {
		t.Errorf("Expected confidence below 0.7 for a near-even split, got %f", result.Confidence)
	}
	// 1.3 vs 1.25 is a 2%% relative margin: a near-tie.
	if result.Consensus != model.VerdictUndecided {
		t.Errorf("Expected undecided for near-tie, got %s", result.Consensus)
	}
}

func TestCalculate_ExactTie(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := spread(base, []model.Vote{
		vote("a", model.VoteConfirm, 0.5, base),
		vote("b", model.VoteDispute, 0.5, base),
	})

	result := engine.Calculate(votes, testEvent())
	if result.Consensus != model.VerdictUndecided {
		t.Errorf("Expected undecided on an exact tie, got %s", result.Consensus)
	}
}

func TestCalculate_DisputeScenarioWithSybilFlag(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := spread(base, []model.Vote{
		vote("coordinator", model.VoteDispute, 0.9, base),
		vote("sock-1", model.VoteConfirm, 0.15, base),
		vote("sock-2", model.VoteConfirm, 0.12, base),
		vote("sock-3", model.VoteConfirm, 0.10, base),
	})

	result := engine.Calculate(votes, testEvent())

	if result.Consensus != model.VerdictDispute {
		t.Errorf("Expected the high-trust dispute to win, got %s", result.Consensus)
	}

	found := false
	for _, a := range result.Anomalies {
		if strings.Contains(a.Description, "potential Sybil attack") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected Sybil anomaly flag, got %v", result.AnomalyStrings())
	}
}

func TestCalculate_DistanceAdjustment(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := testEvent()

	near := vote("near", model.VoteConfirm, 0.8, base)
	near.Location = &model.Coordinates{Latitude: 40.7129, Longitude: -74.0061} // ~14 m away

	far := vote("far", model.VoteConfirm, 0.8, base.Add(10*time.Minute))
	far.Location = &model.Coordinates{Latitude: 40.9128, Longitude: -74.0060} // ~22 km away

	result := engine.Calculate([]model.Vote{near, far}, event)

	// Raw weighted score ignores distance.
	if math.Abs(result.WeightedConfirmScore-1.6) > 1e-9 {
		t.Errorf("Expected raw weighted score 1.6, got %f", result.WeightedConfirmScore)
	}

	// Adjusted score keeps the near vote essentially whole and cuts
	// the far one materially.
	if result.DistanceAdjustedConfirmScore >= result.WeightedConfirmScore {
		t.Errorf("Expected distance adjustment to reduce the total, got %f", result.DistanceAdjustedConfirmScore)
	}
	if result.DistanceAdjustedConfirmScore < 0.8 {
		t.Errorf("Expected the near vote to contribute close to full weight, got total %f", result.DistanceAdjustedConfirmScore)
	}
}

func TestCalculate_MissingLocationFallback(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := spread(base, []model.Vote{
		vote("a", model.VoteConfirm, 0.8, base), // no location at all
		vote("b", model.VoteConfirm, 0.7, base),
	})

	result := engine.Calculate(votes, testEvent())

	if math.Abs(result.WeightedConfirmScore-1.5) > 1e-9 {
		t.Errorf("Expected both votes counted at full weight, got %f", result.WeightedConfirmScore)
	}
	if math.Abs(result.DistanceAdjustedConfirmScore-1.5) > 1e-9 {
		t.Errorf("Expected no distance penalty without locations, got %f", result.DistanceAdjustedConfirmScore)
	}
	for _, a := range result.Anomalies {
		if a.Type == model.AnomalyLocationCluster {
			t.Errorf("Expected no location anomaly for locationless votes, got %v", a)
		}
	}
}

func TestCalculate_AdversarialWeights(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := spread(base, []model.Vote{
		vote("a", model.VoteConfirm, math.NaN(), base),
		vote("b", model.VoteConfirm, -3, base),
		vote("c", model.VoteDispute, math.Inf(1), base),
	})

	result := engine.Calculate(votes, testEvent())

	if math.IsNaN(result.WeightedConfirmScore) || math.IsNaN(result.Confidence) {
		t.Errorf("Expected sanitized aggregation, got %+v", result)
	}
	if result.WeightedDisputeScore > 1 {
		t.Errorf("Expected infinite weight sanitized, got %f", result.WeightedDisputeScore)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	engine := newTestEngine()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := spread(base, []model.Vote{
		vote("a", model.VoteConfirm, 0.9, base),
		vote("b", model.VoteDispute, 0.4, base),
		vote("c", model.VoteConfirm, 0.6, base),
	})
	event := testEvent()

	first := engine.Calculate(votes, event)
	for i := 0; i < 10; i++ {
		again := engine.Calculate(votes, event)
		if again.Consensus != first.Consensus || again.Confidence != first.Confidence ||
			again.WeightedConfirmScore != first.WeightedConfirmScore {
			t.Fatalf("Expected reproducible results, got %+v then %+v", first, again)
		}
	}
}

func userN(prefix string, n int) string {
	return prefix + "-" + string(rune('a'+n))
}
