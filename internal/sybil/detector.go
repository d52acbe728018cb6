// Package sybil runs statistical checks over voter populations and
// raises advisory anomaly flags. The detector never suppresses votes
// or touches the verdict; acting on a flag (manual review, muting) is
// the caller's decision.
package sybil

import (
	"fmt"
	"math"
	"sort"

	"github.com/crowdproof/crowdproof/internal/model"
)

// LowTrustFloodDescription is the canonical descriptor for the
// many-low-trust-voters pattern.
const LowTrustFloodDescription = "High proportion of low-trust voters (potential Sybil attack)"

// metersPerDegree approximates one degree of latitude.
const metersPerDegree = 111320.0

// Detector inspects vote sets for coordination patterns.
type Detector struct {
	cfg model.SybilConfig
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg model.SybilConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Inspect runs all per-vote-set checks and returns the flags in a
// fixed order (trust distribution, timing, location), so results are
// reproducible for a fixed vote set.
func (d *Detector) Inspect(votes []model.Vote, event *model.EmergencyEvent) []model.Anomaly {
	var anomalies []model.Anomaly

	if a := d.lowTrustFlood(votes); a != nil {
		anomalies = append(anomalies, *a)
	}
	if a := d.timingCluster(votes); a != nil {
		anomalies = append(anomalies, *a)
	}
	if a := d.locationCluster(votes); a != nil {
		anomalies = append(anomalies, *a)
	}

	return anomalies
}

// lowTrustFlood fires when low-trust identities make up more than the
// configured fraction of a large-enough voter set.
func (d *Detector) lowTrustFlood(votes []model.Vote) *model.Anomaly {
	if len(votes) < d.cfg.MinVoters {
		return nil
	}

	lowTrust := 0
	for _, vote := range votes {
		if vote.TrustWeight < d.cfg.LowTrustThreshold {
			lowTrust++
		}
	}

	ratio := float64(lowTrust) / float64(len(votes))
	if ratio <= d.cfg.FloodFraction {
		return nil
	}

	return &model.Anomaly{
		Type:        model.AnomalyLowTrustFlood,
		Severity:    model.AnomalyWarning,
		Description: LowTrustFloodDescription,
		Data: map[string]any{
			"low_trust_voters": lowTrust,
			"total_voters":     len(votes),
			"ratio":            ratio,
			"threshold":        d.cfg.LowTrustThreshold,
		},
	}
}

// timingCluster fires when a large-enough voter set arrives inside an
// unusually narrow window. Informational: legitimate nearby witnesses
// also react fast, so this alone does not imply coordination.
func (d *Detector) timingCluster(votes []model.Vote) *model.Anomaly {
	if len(votes) < d.cfg.MinVoters {
		return nil
	}

	first := votes[0].Timestamp
	last := votes[0].Timestamp
	for _, vote := range votes[1:] {
		if vote.Timestamp.Before(first) {
			first = vote.Timestamp
		}
		if vote.Timestamp.After(last) {
			last = vote.Timestamp
		}
	}

	span := last.Sub(first)
	if span > d.cfg.TimingWindow {
		return nil
	}

	return &model.Anomaly{
		Type:        model.AnomalyTimingCluster,
		Severity:    model.AnomalyInfo,
		Description: fmt.Sprintf("%d votes arrived within %s (possible coordinated burst)", len(votes), span),
		Data: map[string]any{
			"votes":       len(votes),
			"span_seconds": span.Seconds(),
			"window_seconds": d.cfg.TimingWindow.Seconds(),
		},
	}
}

// locationCluster fires when several distinct voters share a
// near-identical location. Votes without a location never contribute
// to (or against) this flag. Grid bucketing keeps the check O(n).
func (d *Detector) locationCluster(votes []model.Vote) *model.Anomaly {
	if len(votes) < d.cfg.MinVoters {
		return nil
	}

	gridDeg := d.cfg.LocationGridMeters / metersPerDegree
	if gridDeg <= 0 {
		return nil
	}

	buckets := make(map[[2]int64]map[string]bool)
	for _, vote := range votes {
		if vote.Location == nil || !vote.Location.Valid() {
			continue
		}
		key := [2]int64{
			int64(math.Floor(vote.Location.Latitude / gridDeg)),
			int64(math.Floor(vote.Location.Longitude / gridDeg)),
		}
		if buckets[key] == nil {
			buckets[key] = make(map[string]bool)
		}
		buckets[key][vote.UserID] = true
	}

	largest := 0
	for _, users := range buckets {
		if len(users) > largest {
			largest = len(users)
		}
	}
	if largest < d.cfg.MinClusterSize {
		return nil
	}

	return &model.Anomaly{
		Type:        model.AnomalyLocationCluster,
		Severity:    model.AnomalyWarning,
		Description: fmt.Sprintf("%d voters share a near-identical location (within ~%.0f m)", largest, d.cfg.LocationGridMeters),
		Data: map[string]any{
			"cluster_size": largest,
			"grid_meters":  d.cfg.LocationGridMeters,
		},
	}
}

// DetectEndorsementCycles finds endorsement rings: chains A→B→…→A
// where every member is both endorser and endorsed, with no external
// validation. Cycle search is bounded by MaxCycleLength, so the cost
// stays proportional to the graph size for the small account sets this
// is run over.
func (d *Detector) DetectEndorsementCycles(endorsements []model.Endorsement) []model.Anomaly {
	adjacency := make(map[string][]string)
	for _, e := range endorsements {
		if e.FromUserID == "" || e.ToUserID == "" || e.FromUserID == e.ToUserID {
			continue
		}
		adjacency[e.FromUserID] = append(adjacency[e.FromUserID], e.ToUserID)
	}
	for _, targets := range adjacency {
		sort.Strings(targets)
	}

	users := make([]string, 0, len(adjacency))
	for user := range adjacency {
		users = append(users, user)
	}
	sort.Strings(users)

	var anomalies []model.Anomaly
	seen := make(map[string]bool) // canonical cycle keys already reported

	for _, start := range users {
		path := []string{start}
		d.walkCycles(adjacency, start, start, path, seen, &anomalies)
	}

	return anomalies
}

func (d *Detector) walkCycles(adjacency map[string][]string, start, current string, path []string, seen map[string]bool, out *[]model.Anomaly) {
	if len(path) > d.cfg.MaxCycleLength {
		return
	}
	for _, next := range adjacency[current] {
		if next == start && len(path) >= 2 {
			key := canonicalCycle(path)
			if seen[key] {
				continue
			}
			seen[key] = true
			members := append([]string(nil), path...)
			*out = append(*out, model.Anomaly{
				Type:        model.AnomalyEndorsementCycle,
				Severity:    model.AnomalyWarning,
				Description: fmt.Sprintf("Circular endorsement ring of %d accounts detected", len(members)),
				Data: map[string]any{
					"members": members,
				},
			})
			continue
		}
		if contains(path, next) {
			continue
		}
		d.walkCycles(adjacency, start, next, append(path, next), seen, out)
	}
}

// canonicalCycle produces a rotation-independent key so each ring is
// reported once regardless of which member the walk started from.
func canonicalCycle(path []string) string {
	minIdx := 0
	for i, member := range path {
		if member < path[minIdx] {
			minIdx = i
		}
	}
	key := ""
	for i := 0; i < len(path); i++ {
		key += path[(minIdx+i)%len(path)] + "|"
	}
	return key
}

func contains(path []string, user string) bool {
	for _, member := range path {
		if member == user {
			return true
		}
	}
	return false
}
