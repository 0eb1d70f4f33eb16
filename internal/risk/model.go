package risk

import "math"

// Model scores feature vectors against a fixed Policy. It is stateless
// and safe for concurrent use.
//
// The model is total: it never rejects a well-formed vector. Missing
// features read as 0, out-of-range values were already clamped during
// engineering, and the final score is clamped to [0,1]. A partial
// upstream failure therefore degrades a prediction instead of aborting it.
type Model struct {
	policy Policy
}

// NewModel creates a model for the given policy.
func NewModel(policy Policy) *Model {
	return &Model{policy: policy}
}

// Policy returns the model's scoring policy.
func (m *Model) Policy() Policy {
	return m.policy
}

// Score produces the final risk score, its discretized level, and a
// data-sufficiency confidence for the given features.
func (m *Model) Score(fv FeatureVector) (score float64, level RiskLevel, confidence float64) {
	score = m.weightedScore(fv)
	score = m.applyBusinessRules(score, fv)
	score = m.applyFairness(score, fv)
	score = clamp01(score)

	return score, m.LevelFor(score), m.Confidence(fv)
}

// weightedScore computes the weighted average of all features and
// compresses it into the policy's working band.
func (m *Model) weightedScore(fv FeatureVector) float64 {
	var sum, totalWeight float64
	for name, weight := range m.policy.Weights {
		sum += fv.Get(name) * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return m.policy.ScaleOffset
	}
	raw := sum / totalWeight
	return raw*m.policy.ScaleFactor + m.policy.ScaleOffset
}

// applyBusinessRules layers the ordered additive adjustments on top of
// the aggregate. Each rule reads the original feature values; the order
// matters only for readability since the deltas are additive.
func (m *Model) applyBusinessRules(score float64, fv FeatureVector) float64 {
	r := m.policy.Rules

	if fv.Get(featIsGift) > 0.3 {
		score += r.GiftPurchase
	}
	if fv.Get(featIsNewCustomer) > 0.4 {
		score += r.NewCustomer
	}

	// Tier discounts are mutually exclusive; the higher threshold wins.
	switch tier := fv.Get(featLoyaltyTier); {
	case tier > 0.7:
		score += r.LoyaltyHigh
	case tier > 0.5:
		score += r.LoyaltyMedium
	}

	if fv.Get(featReturnRate) < 0.05 && fv.Get(featTotalPurchases) > 0.3 {
		score += r.ExcellentHistory
	}
	if fv.Get(featSizeAccuracy) > 0.9 {
		score += r.SizeAccuracyHigh
	}
	if fv.Get(featInternational) > 0.3 {
		score += r.International
	}
	if fv.Get(featReturnedBrand) > 0.4 {
		score += r.ReturnedBrand
	}

	return score
}

// applyFairness counteracts rules that would over-penalize users the
// engine knows little about.
func (m *Model) applyFairness(score float64, fv FeatureVector) float64 {
	f := m.policy.Fairness

	if fv.Get(featIsNewCustomer) > 0.4 && fv.Get(featSizeAccuracy) > 0.8 {
		score += f.NewWithGoodAccuracy
	}
	if fv.Get(featTotalPurchases) < f.ThinHistoryMax {
		// Shrink toward the prior rather than hard-overriding.
		score = score*f.ThinHistoryShrink + f.ThinHistoryPrior
	}

	return score
}

// Confidence estimates data sufficiency on [0.5, 0.95]. It is independent
// of the score's direction: a confident prediction can be confidently low
// risk or confidently high risk.
func (m *Model) Confidence(fv FeatureVector) float64 {
	c := 0.5

	// Purchase history depth, up to +0.15.
	c += math.Min(0.15, fv.Get(featTotalPurchases)*0.5)

	// Account age, up to +0.1. The account-age feature encodes newness
	// risk, so an old account is (1 - value).
	c += 0.1 * (1 - fv.Get(featAccountAge))

	// Product data depth, up to +0.1 each.
	c += math.Min(0.1, fv.Get(featRatingCount)*0.2)
	c += math.Min(0.1, fv.Get(featSoldCount)*0.2)

	// Size-accuracy history depth, up to +0.05.
	c += math.Min(0.05, fv.Get(featSizeAccuracy)*0.05)

	if c < 0.5 {
		c = 0.5
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// LevelFor discretizes a score using the policy thresholds. The bands
// are half-open with no gaps or overlap.
func (m *Model) LevelFor(score float64) RiskLevel {
	t := m.policy.Levels
	switch {
	case score < t.VeryLowMax:
		return LevelVeryLow
	case score < t.LowMax:
		return LevelLow
	case score < t.MediumMax:
		return LevelMedium
	case score < t.HighMax:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}
