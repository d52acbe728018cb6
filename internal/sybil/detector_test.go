package sybil

import (
	"strings"
	"testing"
	"time"

	"github.com/crowdproof/crowdproof/internal/model"
)

func newTestDetector() *Detector {
	return NewDetector(model.DefaultConfig().Sybil)
}

func voteAt(userID string, weight float64, at time.Time) model.Vote {
	return model.Vote{
		UserID:      userID,
		EventID:     "event-1",
		VoteType:    model.VoteConfirm,
		TrustWeight: weight,
		Timestamp:   at,
	}
}

func TestInspect_LowTrustFlood(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		voteAt("real", 0.9, base),
		voteAt("sock-1", 0.12, base.Add(10*time.Minute)),
		voteAt("sock-2", 0.15, base.Add(20*time.Minute)),
		voteAt("sock-3", 0.10, base.Add(30*time.Minute)),
	}

	anomalies := detector.Inspect(votes, nil)

	found := false
	for _, a := range anomalies {
		if a.Type == model.AnomalyLowTrustFlood {
			found = true
			if a.Description != LowTrustFloodDescription {
				t.Errorf("Expected canonical descriptor, got %q", a.Description)
			}
		}
	}
	if !found {
		t.Errorf("Expected low-trust-flood anomaly, got %v", anomalies)
	}
}

func TestInspect_NoFloodForHealthyMix(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		voteAt("a", 0.9, base),
		voteAt("b", 0.7, base.Add(10*time.Minute)),
		voteAt("c", 0.5, base.Add(20*time.Minute)),
		voteAt("d", 0.2, base.Add(30*time.Minute)),
	}

	for _, a := range detector.Inspect(votes, nil) {
		if a.Type == model.AnomalyLowTrustFlood {
			t.Errorf("Expected no flood flag for one low-trust voter in four, got %v", a)
		}
	}
}

func TestInspect_SmallPopulationNeverFlags(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		voteAt("a", 0.1, base),
		voteAt("b", 0.1, base),
	}

	if anomalies := detector.Inspect(votes, nil); len(anomalies) != 0 {
		t.Errorf("Expected no flags below the minimum population, got %v", anomalies)
	}
}

func TestInspect_TimingCluster(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		voteAt("a", 0.6, base),
		voteAt("b", 0.7, base.Add(5*time.Second)),
		voteAt("c", 0.5, base.Add(12*time.Second)),
		voteAt("d", 0.6, base.Add(20*time.Second)),
	}

	anomalies := detector.Inspect(votes, nil)

	found := false
	for _, a := range anomalies {
		if a.Type == model.AnomalyTimingCluster {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected timing-cluster flag for a 20-second burst, got %v", anomalies)
	}
}

func TestInspect_NoTimingClusterWhenSpreadOut(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		voteAt("a", 0.6, base),
		voteAt("b", 0.7, base.Add(15*time.Minute)),
		voteAt("c", 0.5, base.Add(40*time.Minute)),
	}

	for _, a := range detector.Inspect(votes, nil) {
		if a.Type == model.AnomalyTimingCluster {
			t.Errorf("Expected no timing flag for votes spread over 40 minutes, got %v", a)
		}
	}
}

func TestInspect_LocationCluster(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	here := model.Coordinates{Latitude: 40.712800, Longitude: -74.006000}
	votes := []model.Vote{
		voteAt("a", 0.6, base),
		voteAt("b", 0.7, base.Add(10*time.Minute)),
		voteAt("c", 0.5, base.Add(20*time.Minute)),
	}
	for i := range votes {
		p := here
		votes[i].Location = &p
	}

	anomalies := detector.Inspect(votes, nil)

	found := false
	for _, a := range anomalies {
		if a.Type == model.AnomalyLocationCluster {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected location-cluster flag for identical coordinates, got %v", anomalies)
	}
}

func TestInspect_NoLocationClusterForMissingLocations(t *testing.T) {
	detector := newTestDetector()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	votes := []model.Vote{
		voteAt("a", 0.6, base),
		voteAt("b", 0.7, base.Add(10*time.Minute)),
		voteAt("c", 0.5, base.Add(20*time.Minute)),
	}

	for _, a := range detector.Inspect(votes, nil) {
		if a.Type == model.AnomalyLocationCluster {
			t.Errorf("Expected missing locations to never trigger the location flag, got %v", a)
		}
	}
}

func TestDetectEndorsementCycles_Ring(t *testing.T) {
	detector := newTestDetector()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	endorsements := []model.Endorsement{
		{FromUserID: "a", ToUserID: "b", CreatedAt: now},
		{FromUserID: "b", ToUserID: "c", CreatedAt: now},
		{FromUserID: "c", ToUserID: "a", CreatedAt: now},
	}

	anomalies := detector.DetectEndorsementCycles(endorsements)

	if len(anomalies) != 1 {
		t.Fatalf("Expected exactly one ring reported, got %d: %v", len(anomalies), anomalies)
	}
	if anomalies[0].Type != model.AnomalyEndorsementCycle {
		t.Errorf("Expected endorsement-cycle anomaly, got %s", anomalies[0].Type)
	}
	if !strings.Contains(anomalies[0].Description, "3 accounts") {
		t.Errorf("Expected ring size in description, got %q", anomalies[0].Description)
	}
}

func TestDetectEndorsementCycles_ChainIsClean(t *testing.T) {
	detector := newTestDetector()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// A endorses B endorses C: no cycle, external validation intact.
	endorsements := []model.Endorsement{
		{FromUserID: "a", ToUserID: "b", CreatedAt: now},
		{FromUserID: "b", ToUserID: "c", CreatedAt: now},
	}

	if anomalies := detector.DetectEndorsementCycles(endorsements); len(anomalies) != 0 {
		t.Errorf("Expected no anomalies for an acyclic chain, got %v", anomalies)
	}
}

func TestDetectEndorsementCycles_SelfEndorsementIgnored(t *testing.T) {
	detector := newTestDetector()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	endorsements := []model.Endorsement{
		{FromUserID: "a", ToUserID: "a", CreatedAt: now},
	}

	if anomalies := detector.DetectEndorsementCycles(endorsements); len(anomalies) != 0 {
		t.Errorf("Expected self-endorsement ignored, got %v", anomalies)
	}
}
