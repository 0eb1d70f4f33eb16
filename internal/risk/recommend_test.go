package risk

import (
	"testing"
)

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestRecommendByLevel(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  []string
	}{
		{LevelVeryLow, []string{RecStandardHandling}},
		{LevelLow, []string{RecStandardHandling}},
		{LevelMedium, []string{RecSizeGuideNudge}},
		{LevelHigh, []string{RecProactiveContact, RecSizeConsultation}},
		{LevelVeryHigh, []string{RecManualReview, RecPreShipmentCheck, RecSizeConfirmation}},
	}

	for _, tt := range tests {
		recs := Recommend(tt.level, nil, UserProfile{}, ProductInfo{Category: "tops"}, TransactionContext{})
		if len(recs) == 0 {
			t.Errorf("level %s: recommendations must never be empty", tt.level)
		}
		for _, want := range tt.want {
			if !contains(recs, want) {
				t.Errorf("level %s missing %q, got %v", tt.level, want, recs)
			}
		}
	}
}

func TestRecommendFitSensitiveNudge(t *testing.T) {
	// Low risk, but a tight fit still earns the size guide nudge.
	recs := Recommend(LevelLow, nil, UserProfile{}, ProductInfo{FitType: "tight"}, TransactionContext{})
	if !contains(recs, RecSizeGuideNudge) {
		t.Errorf("tight fit at low risk should nudge size guide, got %v", recs)
	}

	// High-risk categories count as fit-sensitive even with normal fit.
	recs = Recommend(LevelVeryLow, nil, UserProfile{}, ProductInfo{Category: "swimwear"}, TransactionContext{})
	if !contains(recs, RecSizeGuideNudge) {
		t.Errorf("swimwear at very_low should nudge size guide, got %v", recs)
	}

	// Plain category, normal fit: standard handling only.
	recs = Recommend(LevelVeryLow, nil, UserProfile{}, ProductInfo{Category: "accessories"}, TransactionContext{})
	if contains(recs, RecSizeGuideNudge) {
		t.Errorf("accessories at very_low should not nudge size guide, got %v", recs)
	}
}

func TestRecommendContextAdditions(t *testing.T) {
	recs := Recommend(LevelMedium, nil, UserProfile{}, ProductInfo{}, TransactionContext{IsNewCustomer: true})
	if !contains(recs, RecNewCustomerTip) {
		t.Errorf("new customer at medium should get welcome tip, got %v", recs)
	}

	recs = Recommend(LevelHigh, nil, UserProfile{}, ProductInfo{}, TransactionContext{IsGift: true})
	if !contains(recs, RecGiftReceipt) {
		t.Errorf("gift at high should get gift receipt, got %v", recs)
	}
}

func TestRecommendFactorAdditions(t *testing.T) {
	factors := []Factor{
		{Name: "user_return_rate"},
		{Name: "product_fit_type"},
	}
	recs := Recommend(LevelMedium, factors, UserProfile{}, ProductInfo{}, TransactionContext{})

	if !contains(recs, RecReturnHistoryNote) {
		t.Errorf("return_rate factor should add history note, got %v", recs)
	}
	if !contains(recs, RecFitSensitiveItem) {
		t.Errorf("fit_type factor should add fit note, got %v", recs)
	}
}

func TestRecommendDeduplicates(t *testing.T) {
	// Both user and product return-rate factors map to the same note.
	factors := []Factor{
		{Name: "user_return_rate"},
		{Name: "product_return_rate"},
	}
	recs := Recommend(LevelLow, factors, UserProfile{}, ProductInfo{}, TransactionContext{})

	count := 0
	for _, r := range recs {
		if r == RecReturnHistoryNote {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate recommendation kept %d times, want 1: %v", count, recs)
	}

	// First-seen order preserved.
	if recs[0] != RecStandardHandling {
		t.Errorf("first recommendation = %q, want standard handling", recs[0])
	}
}
