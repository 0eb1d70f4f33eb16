package risk

import "strings"

// Recommendation strings. Kept as constants so handlers, tests, and the
// ops runbook reference the same text.
const (
	RecStandardHandling  = "Process with standard handling"
	RecSizeGuideNudge    = "Surface the size guide on the product page"
	RecSizeConsultation  = "Offer a size consultation before shipping"
	RecSizeConfirmation  = "Require size confirmation before fulfillment"
	RecNewCustomerTip    = "Include a first-purchase welcome note with fit tips"
	RecGiftReceipt       = "Include a gift receipt and extended exchange window"
	RecProactiveContact  = "Contact the customer proactively to confirm the order"
	RecPreShipmentCheck  = "Hold for pre-shipment contact before dispatch"
	RecManualReview      = "Flag order for manual review"
	RecReturnHistoryNote = "Review the customer's return history before fulfillment"
	RecFitSensitiveItem  = "Double-check measurements for this fit-sensitive item"
)

// Recommend maps a risk level plus its explanation onto actionable
// recommendation strings. Output preserves first-seen order with exact
// duplicates removed, and is never empty.
func Recommend(level RiskLevel, factors []Factor, user UserProfile, product ProductInfo, txn TransactionContext) []string {
	var recs []string

	switch level {
	case LevelVeryLow, LevelLow:
		recs = append(recs, RecStandardHandling)
		if fitSensitive(product) {
			recs = append(recs, RecSizeGuideNudge)
		}
	case LevelMedium:
		recs = append(recs, RecSizeGuideNudge)
		if txn.IsNewCustomer {
			recs = append(recs, RecNewCustomerTip)
		}
	case LevelHigh:
		recs = append(recs, RecProactiveContact, RecSizeConsultation)
		if txn.IsGift {
			recs = append(recs, RecGiftReceipt)
		}
	case LevelVeryHigh:
		recs = append(recs, RecManualReview, RecPreShipmentCheck, RecSizeConfirmation)
	default:
		recs = append(recs, RecStandardHandling)
	}

	// Factor-specific additions.
	for _, f := range factors {
		switch {
		case strings.Contains(f.Name, "return_rate"):
			recs = append(recs, RecReturnHistoryNote)
		case strings.Contains(f.Name, "fit_type"):
			recs = append(recs, RecFitSensitiveItem)
		}
	}

	return dedupe(recs)
}

// fitSensitive reports whether the product's cut makes sizing risky
// enough to nudge even low-risk buyers toward the size guide.
func fitSensitive(product ProductInfo) bool {
	switch normalizeKey(product.FitType) {
	case "tight", "oversized":
		return true
	}
	return highRiskCategories[normalizeKey(product.Category)]
}

func dedupe(recs []string) []string {
	seen := make(map[string]bool, len(recs))
	out := recs[:0]
	for _, r := range recs {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
