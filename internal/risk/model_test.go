package risk

import (
	"math"
	"testing"
)

// trustedRepeatCustomer is a long-tenured platinum buyer with an
// excellent return record.
func trustedRepeatCustomer() (UserProfile, ProductInfo, TransactionContext) {
	user := UserProfile{
		ID:             "u-trusted",
		TotalPurchases: 45,
		TotalReturns:   2,
		ReturnRate:     0.044,
		AvgOrderValue:  85,
		AvgReturnValue: 40,
		AccountAgeDays: 900,
		SizeAccuracy:   floatPtr(0.95),
		ReviewScore:    floatPtr(4.6),
		LoyaltyTier:    TierPlatinum,
	}
	product := ProductInfo{
		ID:          "p-basic-tee",
		Category:    "tops",
		Brand:       "everlane",
		Price:       29.99,
		FitType:     "normal",
		RatingAvg:   4.6,
		RatingCount: 500,
		ReturnCount: 30,
		TotalSold:   1500,
		StockStatus: "in_stock",
	}
	txn := TransactionContext{
		DeviceType:    "desktop",
		ShippingSpeed: "standard",
		PaymentMethod: "credit_card",
	}
	return user, product, txn
}

// riskyFirstPurchase is a brand-new account buying a fit-sensitive item
// as an international gift, having returned this brand before.
func riskyFirstPurchase() (UserProfile, ProductInfo, TransactionContext) {
	user := UserProfile{
		ID:             "u-new",
		TotalPurchases: 1,
		TotalReturns:   1,
		ReturnRate:     1.0,
		AvgOrderValue:  20,
		AvgReturnValue: 20,
		AccountAgeDays: 3,
		LoyaltyTier:    TierBronze,
	}
	product := ProductInfo{
		ID:          "p-bodysuit",
		Category:    "intimates",
		Brand:       "shein",
		Price:       89.99,
		FitType:     "tight",
		RatingAvg:   3.0,
		ReturnCount: 6,
		TotalSold:   22,
	}
	txn := TransactionContext{
		DeviceType:          "mobile",
		IsNewCustomer:       true,
		IsGift:              true,
		IsInternational:     true,
		ReturnedBrandBefore: true,
		ReturnWindowDays:    30,
	}
	return user, product, txn
}

func TestScoreTrustedRepeatCustomer(t *testing.T) {
	m := NewModel(DefaultPolicy())
	user, product, txn := trustedRepeatCustomer()

	score, level, confidence := m.Score(EngineerFeatures(user, product, txn))

	if level != LevelVeryLow {
		t.Errorf("trusted customer level = %s, want very_low (score %v)", level, score)
	}
	if score >= 0.15 {
		t.Errorf("trusted customer score = %v, want < 0.15", score)
	}
	// Deep purchase, product, and size history: confidence caps out.
	if !almostEqual(confidence, 0.95) {
		t.Errorf("trusted customer confidence = %v, want 0.95", confidence)
	}
}

func TestScoreRiskyFirstPurchase(t *testing.T) {
	m := NewModel(DefaultPolicy())
	user, product, txn := riskyFirstPurchase()

	score, level, confidence := m.Score(EngineerFeatures(user, product, txn))

	if level != LevelHigh {
		t.Errorf("risky purchase level = %s, want high (score %v)", level, score)
	}
	if score < 0.5 || score >= 0.7 {
		t.Errorf("risky purchase score = %v, want in [0.5, 0.7)", score)
	}
	if confidence < 0.5 || confidence > 0.65 {
		t.Errorf("thin-data confidence = %v, want low (0.5-0.65)", confidence)
	}
}

func TestScoreBounds(t *testing.T) {
	m := NewModel(DefaultPolicy())

	// All features at the extremes still land in [0,1].
	for _, fill := range []float64{0, 1} {
		fv := make(FeatureVector)
		for name := range DefaultPolicy().Weights {
			fv[name] = fill
		}
		score, _, confidence := m.Score(fv)
		if score < 0 || score > 1 {
			t.Errorf("score out of bounds for fill %v: %v", fill, score)
		}
		if confidence < 0.5 || confidence > 0.95 {
			t.Errorf("confidence out of bounds for fill %v: %v", fill, confidence)
		}
	}

	// Empty vector is not an error.
	score, level, _ := m.Score(FeatureVector{})
	if score < 0 || score > 1 {
		t.Errorf("empty vector score out of bounds: %v", score)
	}
	if level == "" {
		t.Error("empty vector must still discretize to a level")
	}
}

func TestScoreDeterminism(t *testing.T) {
	m := NewModel(DefaultPolicy())
	user, product, txn := riskyFirstPurchase()

	s1, l1, c1 := m.Score(EngineerFeatures(user, product, txn))
	s2, l2, c2 := m.Score(EngineerFeatures(user, product, txn))

	if s1 != s2 || l1 != l2 || c1 != c2 {
		t.Errorf("identical inputs scored differently: (%v,%s,%v) vs (%v,%s,%v)", s1, l1, c1, s2, l2, c2)
	}
}

func TestReturnRateMonotonicity(t *testing.T) {
	m := NewModel(DefaultPolicy())
	user, product, txn := trustedRepeatCustomer()

	var prev float64 = -1
	for _, rr := range []float64{0.0, 0.1, 0.25, 0.5, 0.75, 1.0} {
		u := user
		u.ReturnRate = rr
		score, _, _ := m.Score(EngineerFeatures(u, product, txn))
		if score < prev {
			t.Errorf("score decreased when return rate rose to %v: %v < %v", rr, score, prev)
		}
		prev = score
	}
}

// Raising the loyalty tier must never raise the score: the tier feature
// carries zero aggregate weight and only drives rule discounts.
func TestLoyaltyTierMonotonicity(t *testing.T) {
	m := NewModel(DefaultPolicy())
	user, product, txn := riskyFirstPurchase()

	tiers := []LoyaltyTier{TierBronze, TierSilver, TierGold, TierPlatinum}
	prev := math.Inf(1)
	for _, tier := range tiers {
		u := user
		u.LoyaltyTier = tier
		score, _, _ := m.Score(EngineerFeatures(u, product, txn))
		if score > prev {
			t.Errorf("score increased at tier %s: %v > %v", tier, score, prev)
		}
		prev = score
	}
}

func TestGiftRuleFires(t *testing.T) {
	m := NewModel(DefaultPolicy())
	user, product, txn := trustedRepeatCustomer()
	// Use a mid-band customer so the adjustment is visible before clamping.
	user.LoyaltyTier = TierBronze
	user.ReturnRate = 0.2

	base, _, _ := m.Score(EngineerFeatures(user, product, txn))

	txn.IsGift = true
	gift, _, _ := m.Score(EngineerFeatures(user, product, txn))

	// Gift adds its rule delta plus the small aggregate shift from the
	// flag feature itself.
	if gift <= base {
		t.Errorf("gift purchase should raise score: %v <= %v", gift, base)
	}
	if diff := gift - base; diff < 0.08 || diff > 0.12 {
		t.Errorf("gift adjustment = %v, want rule delta 0.08 plus small aggregate shift", diff)
	}
}

func TestThinHistoryFloor(t *testing.T) {
	m := NewModel(DefaultPolicy())

	// An all-zero vector has no purchase history, so the thin-history
	// adjustment applies to the scale offset: 0.1*0.9 + 0.15 = 0.24. The
	// engine refuses to claim near-zero risk for a user it knows nothing
	// about.
	fv := make(FeatureVector)
	for name := range DefaultPolicy().Weights {
		fv[name] = 0
	}
	score, level, _ := m.Score(fv)

	if !almostEqual(score, 0.24) {
		t.Errorf("zero-signal score = %v, want 0.24", score)
	}
	if level != LevelLow {
		t.Errorf("zero-signal level = %s, want low", level)
	}
}

func TestLevelThresholds(t *testing.T) {
	m := NewModel(DefaultPolicy())

	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0.0, LevelVeryLow},
		{0.149, LevelVeryLow},
		{0.15, LevelLow},
		{0.299, LevelLow},
		{0.30, LevelMedium},
		{0.499, LevelMedium},
		{0.50, LevelHigh},
		{0.699, LevelHigh},
		{0.70, LevelVeryHigh},
		{1.0, LevelVeryHigh},
	}
	for _, tt := range tests {
		if got := m.LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestConfidenceBounds(t *testing.T) {
	m := NewModel(DefaultPolicy())

	if c := m.Confidence(FeatureVector{featAccountAge: 1}); c != 0.5 {
		t.Errorf("zero-signal confidence = %v, want floor 0.5", c)
	}

	full := FeatureVector{
		featTotalPurchases: 1,
		featAccountAge:     0,
		featRatingCount:    1,
		featSoldCount:      1,
		featSizeAccuracy:   1,
	}
	if c := m.Confidence(full); c != 0.95 {
		t.Errorf("max-signal confidence = %v, want cap 0.95", c)
	}
}

func TestFallbackPrediction(t *testing.T) {
	p := DefaultPolicy()
	pred := FallbackPrediction(p)

	if pred.RiskScore != 0.25 {
		t.Errorf("fallback score = %v, want 0.25", pred.RiskScore)
	}
	if pred.RiskLevel != LevelMedium {
		t.Errorf("fallback level = %s, want medium", pred.RiskLevel)
	}
	if pred.Confidence != 0.5 {
		t.Errorf("fallback confidence = %v, want 0.5", pred.Confidence)
	}
	if pred.ModelVersion != p.Version {
		t.Errorf("fallback model version = %s, want %s", pred.ModelVersion, p.Version)
	}
	if len(pred.Recommendations) == 0 {
		t.Error("fallback must carry recommendations")
	}
}

func TestDefaultPolicyWeightGroups(t *testing.T) {
	w := defaultWeights()

	groups := map[string]float64{}
	for name, weight := range w {
		if weight < 0 {
			t.Errorf("weight %s is negative: %v", name, weight)
		}
		groups[featureGroup(name)] += weight
	}

	wantGroups := map[string]float64{
		"user":        0.45,
		"product":     0.35,
		"context":     0.20,
		"interaction": 0.01,
	}
	for group, want := range wantGroups {
		if got := groups[group]; math.Abs(got-want) > 1e-9 {
			t.Errorf("group %s weight sum = %v, want %v", group, got, want)
		}
	}
}
