package risk

// Policy is the versioned scoring configuration: the feature weight
// table, the rescale constants, the ordered rule adjustments, and the
// level thresholds. Policies are immutable once constructed; a Model
// holds exactly one. Keeping this explicit (instead of package-mutable
// state) lets tests run alternative policies side by side and gives the
// modelVersion output field something real to report.
//
// Every constant here is hand-authored, not fitted against outcome data.
// Treat the values as business policy subject to recalibration, and keep
// them byte-for-byte stable within a version: downstream consumers
// compare scores across services.
type Policy struct {
	Version      string
	BaselineRisk float64

	// Weights assigns every feature a non-negative weight. Group totals:
	// user ~0.45, product ~0.35, context ~0.20, interaction placeholders
	// 0.001 each.
	Weights map[string]float64

	// The raw weighted average is compressed into a working band of
	// roughly 0.1-0.4 before rule adjustments: score = raw*Scale + Offset.
	ScaleFactor float64
	ScaleOffset float64

	Rules    RuleDeltas
	Fairness FairnessRules

	// Level cutoffs, half-open: score < VeryLowMax is very_low, and so on
	// up through high; everything else is very_high.
	Levels LevelThresholds

	// TopFactorLimit bounds the explanation list.
	TopFactorLimit int
}

// RuleDeltas are the ordered, additive business-rule adjustments. Each
// rule fires off the engineered feature value named in its comment.
type RuleDeltas struct {
	GiftPurchase     float64 // context_is_gift > 0.3
	NewCustomer      float64 // context_is_new_customer > 0.4
	LoyaltyHigh      float64 // user_loyalty_tier > 0.7
	LoyaltyMedium    float64 // user_loyalty_tier > 0.5 (when high doesn't fire)
	ExcellentHistory float64 // user_return_rate < 0.05 and user_total_purchases > 0.3
	SizeAccuracyHigh float64 // user_size_accuracy > 0.9
	International    float64 // context_is_international > 0.3
	ReturnedBrand    float64 // context_returned_brand_before > 0.4
}

// FairnessRules counteract rules that over-penalize thin-data users.
// They apply after the business rules.
type FairnessRules struct {
	// NewWithGoodAccuracy relieves new customers whose size history is
	// strong: context_is_new_customer > 0.4 and user_size_accuracy > 0.8.
	NewWithGoodAccuracy float64

	// Thin purchase history (user_total_purchases < ThinHistoryMax)
	// shrinks the score toward the prior instead of trusting the
	// aggregate: score = score*ThinHistoryShrink + ThinHistoryPrior.
	ThinHistoryMax    float64
	ThinHistoryShrink float64
	ThinHistoryPrior  float64
}

// LevelThresholds discretize a score into a RiskLevel.
type LevelThresholds struct {
	VeryLowMax float64
	LowMax     float64
	MediumMax  float64
	HighMax    float64
}

// DefaultPolicy returns policy version 1.0.0.
func DefaultPolicy() Policy {
	return Policy{
		Version:      "1.0.0",
		BaselineRisk: 0.15,
		Weights:      defaultWeights(),
		ScaleFactor:  0.3,
		ScaleOffset:  0.1,
		Rules: RuleDeltas{
			GiftPurchase:     0.08,
			NewCustomer:      0.05,
			LoyaltyHigh:      -0.12,
			LoyaltyMedium:    -0.05,
			ExcellentHistory: -0.08,
			SizeAccuracyHigh: -0.05,
			International:    0.06,
			ReturnedBrand:    0.10,
		},
		Fairness: FairnessRules{
			NewWithGoodAccuracy: -0.03,
			ThinHistoryMax:      0.1,
			ThinHistoryShrink:   0.9,
			ThinHistoryPrior:    0.15,
		},
		Levels: LevelThresholds{
			VeryLowMax: 0.15,
			LowMax:     0.30,
			MediumMax:  0.50,
			HighMax:    0.70,
		},
		TopFactorLimit: 10,
	}
}

func defaultWeights() map[string]float64 {
	w := map[string]float64{
		// User behavior (0.45 total). Loyalty tier carries zero weight on
		// purpose: its effect is the tiered rule discount, which keeps the
		// score monotone non-increasing as tier rises.
		"user_return_rate":           0.12,
		"user_high_return_flag":      0.04,
		"user_total_purchases":       0.03,
		"user_total_returns":         0.04,
		"user_purchase_frequency":    0.02,
		"user_avg_order_value":       0.02,
		"user_avg_return_value":      0.015,
		"user_return_value_ratio":    0.025,
		"user_account_age":           0.04,
		"user_size_accuracy":         0.01,
		"user_review_score":          0.015,
		"user_loyalty_tier":          0,
		"user_brand_match":           0.02,
		"user_category_match":        0.02,
		"user_device_consistency":    0.025,
		"user_payment_history_depth": 0.01,

		// Product characteristics (0.35 total).
		"product_return_rate":    0.07,
		"product_category_risk":  0.06,
		"product_brand_risk":     0.03,
		"product_fit_type":       0.04,
		"product_rating_risk":    0.025,
		"product_rating_count":   0.01,
		"product_sold_count":     0.01,
		"product_return_count":   0.02,
		"product_price":          0.02,
		"product_price_ratio":    0.015,
		"product_price_band":     0.01,
		"product_stock_status":   0.005,
		"product_is_seasonal":    0.01,
		"product_is_clearance":   0.01,
		"product_has_size_chart": 0.01,
		"product_fabric_risk":    0.005,

		// Transaction context (0.20 total).
		"context_is_new_customer":          0.04,
		"context_is_gift":                  0.03,
		"context_returned_brand_before":    0.03,
		"context_is_international":         0.02,
		"context_payment_method":           0.02,
		"context_discount_magnitude":       0.015,
		"context_has_promotion":            0.01,
		"context_device_type":              0.01,
		"context_shipping_speed":           0.01,
		"context_return_window":            0.01,
		"context_days_since_last_purchase": 0.005,
	}

	// Interaction placeholders: present by name, near-zero influence.
	for _, name := range interactionFeatures {
		w[name] = 0.001
	}

	return w
}
