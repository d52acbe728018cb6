// Package trust computes and evolves per-user trust scores from
// weighted behavioral factors.
package trust

import (
	"math"

	"github.com/crowdproof/crowdproof/internal/model"
)

// Calculate computes the trust score and confidence for a factor set
// using the default weights. Pure and deterministic: the same factors
// always produce the bit-identical result.
func Calculate(factors model.TrustFactors) model.TrustCalculation {
	return CalculateWeighted(factors, model.DefaultTrustWeights())
}

// CalculateWeighted computes the trust score with explicit weights.
//
// Each factor is first normalized to [0,1]:
//   - ratio factors are clamped
//   - response time (minutes) maps to max(0, 1 - minutes/60)
//   - contribution frequency (per week) maps to min(1, freq/10)
//
// NaN, infinite, or negative inputs normalize to 0 rather than
// erroring. The weighted sum (penalty subtracted) is clamped to [0,1].
//
// Confidence is the mean of data completeness (fraction of non-zero
// factors) and consistency (1 − |reporting − confirmation accuracy|).
func CalculateWeighted(factors model.TrustFactors, weights model.TrustWeights) model.TrustCalculation {
	reporting := normalizeRatio(factors.ReportingAccuracy)
	confirmation := normalizeRatio(factors.ConfirmationAccuracy)
	dispute := normalizeRatio(factors.DisputeAccuracy)
	response := normalizeResponseTime(factors.ResponseTime)
	location := normalizeRatio(factors.LocationAccuracy)
	frequency := normalizeFrequency(factors.ContributionFrequency)
	endorsement := normalizeRatio(factors.CommunityEndorsement)
	penalty := normalizeRatio(factors.PenaltyScore)

	score := reporting*weights.ReportingAccuracy +
		confirmation*weights.ConfirmationAccuracy +
		dispute*weights.DisputeAccuracy +
		response*weights.ResponseTime +
		location*weights.LocationAccuracy +
		frequency*weights.ContributionFrequency +
		endorsement*weights.CommunityEndorsement -
		penalty*weights.PenaltyScore

	score = clamp01(score)

	normalized := []float64{reporting, confirmation, dispute, response, location, frequency, endorsement, penalty}
	nonZero := 0
	for _, v := range normalized {
		if v != 0 {
			nonZero++
		}
	}
	completeness := float64(nonZero) / float64(len(normalized))
	consistency := 1 - math.Abs(reporting-confirmation)
	confidence := clamp01((completeness + consistency) / 2)

	return model.TrustCalculation{Score: score, Confidence: confidence}
}

// normalizeRatio clamps a [0,1] factor; non-finite input becomes 0.
func normalizeRatio(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return clamp01(v)
}

// normalizeResponseTime maps minutes to [0,1]: 0 min is 1.0, an hour
// or more is 0.0.
func normalizeResponseTime(minutes float64) float64 {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0
	}
	return clamp01(1 - minutes/60)
}

// normalizeFrequency maps contributions/week to [0,1], saturating at
// 10 per week.
func normalizeFrequency(perWeek float64) float64 {
	if math.IsNaN(perWeek) || math.IsInf(perWeek, 0) {
		return 0
	}
	return clamp01(perWeek / 10)
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
