package risk

import (
	"math"
	"strings"
)

// FeatureVector maps stable feature names to normalized values in [0,1].
// It is built once per prediction and treated as immutable afterward;
// nothing in this package writes to a vector after EngineerFeatures
// returns it.
type FeatureVector map[string]float64

// Get returns the named feature, or 0 when the key is absent. Missing
// keys are not an error: a partial vector still scores, with absent
// signals contributing nothing.
func (fv FeatureVector) Get(name string) float64 {
	return fv[name]
}

// Feature names read by rule adjustments and the confidence estimator.
// The full set of names is the key set of DefaultPolicy().Weights.
const (
	featReturnRate     = "user_return_rate"
	featTotalPurchases = "user_total_purchases"
	featAccountAge     = "user_account_age"
	featSizeAccuracy   = "user_size_accuracy"
	featLoyaltyTier    = "user_loyalty_tier"
	featRatingCount    = "product_rating_count"
	featSoldCount      = "product_sold_count"
	featIsNewCustomer  = "context_is_new_customer"
	featIsGift         = "context_is_gift"
	featInternational  = "context_is_international"
	featReturnedBrand  = "context_returned_brand_before"
)

// Default values for absent optional inputs.
const (
	defaultSizeAccuracy      = 0.7
	defaultReviewScore       = 3.0 // of 5 -> 0.6 normalized
	defaultDeviceConsistency = 0.5
)

// Preference match is deliberately binary with hysteresis rather than a
// similarity score: either the product sits in the user's preferred set
// or it does not.
const (
	prefMatch   = 0.85
	prefNoMatch = 0.25
)

// Category base risk tiers. Categories with strong fit/expectation
// sensitivity return most often.
var highRiskCategories = map[string]bool{
	"intimates": true,
	"swimwear":  true,
	"shoes":     true,
	"lingerie":  true,
}

var mediumRiskCategories = map[string]bool{
	"dresses":  true,
	"bottoms":  true,
	"jeans":    true,
	"jumpsuit": true,
}

// Curated brand lists. Brands absent from both lists take the
// higher-risk branch.
var reliableBrands = map[string]bool{
	"everlane":   true,
	"patagonia":  true,
	"uniqlo":     true,
	"levis":      true,
	"jcrew":      true,
	"madewell":   true,
	"lululemon":  true,
	"eileenfish": true,
}

var riskyBrands = map[string]bool{
	"fashionnova": true,
	"shein":       true,
	"romwe":       true,
	"zaful":       true,
	"boohoo":      true,
}

// categoryAvgPrice is a fixed denominator table for the relative price
// feature. Unlisted categories use the overall default.
var categoryAvgPrice = map[string]float64{
	"tops":        35,
	"bottoms":     55,
	"dresses":     75,
	"outerwear":   120,
	"shoes":       90,
	"intimates":   45,
	"swimwear":    50,
	"accessories": 30,
	"activewear":  60,
}

const defaultCategoryAvgPrice = 60.0

// Delicate fabrics have higher fit and damage sensitivity.
var delicateFabrics = map[string]bool{
	"silk":     true,
	"lace":     true,
	"satin":    true,
	"chiffon":  true,
	"cashmere": true,
	"linen":    true,
}

// interactionFeatures are not-yet-wired placeholders held at 0.5 pending
// richer telemetry. They carry near-zero weight so they appear in factor
// output by name without materially moving the score. Do not drop them:
// downstream explanation surfaces reference these names.
var interactionFeatures = []string{
	"interaction_price_affinity",
	"interaction_category_affinity",
	"interaction_brand_loyalty",
	"interaction_size_stability",
	"interaction_seasonal_pattern",
	"interaction_discount_sensitivity",
	"interaction_browse_depth",
	"interaction_cart_dwell",
	"interaction_return_timing",
	"interaction_social_influence",
}

const interactionPlaceholder = 0.5

// EngineerFeatures converts the three input records into a normalized
// feature vector. Pure function: no I/O, no randomness, every feature
// resolves to a finite value in [0,1].
func EngineerFeatures(user UserProfile, product ProductInfo, txn TransactionContext) FeatureVector {
	fv := make(FeatureVector, 56)

	engineerUserFeatures(fv, user, product)
	engineerProductFeatures(fv, product)
	engineerContextFeatures(fv, txn)

	for _, name := range interactionFeatures {
		fv[name] = interactionPlaceholder
	}

	return fv
}

func engineerUserFeatures(fv FeatureVector, user UserProfile, product ProductInfo) {
	returnRate := clamp01(user.ReturnRate)
	fv[featReturnRate] = returnRate
	fv["user_high_return_flag"] = binary(returnRate > 0.3, 0.9, 0.2)

	fv[featTotalPurchases] = logScale(float64(user.TotalPurchases))
	fv["user_total_returns"] = logScale(float64(user.TotalReturns))

	// Purchases per month, compressed so ~10/month saturates.
	ageDays := math.Max(float64(user.AccountAgeDays), 1)
	monthly := float64(user.TotalPurchases) / (ageDays / 30)
	fv["user_purchase_frequency"] = clamp01(monthly / 10)

	fv["user_avg_order_value"] = clamp01(user.AvgOrderValue / priceCeiling)
	fv["user_avg_return_value"] = clamp01(user.AvgReturnValue / priceCeiling)
	if user.AvgOrderValue > 0 {
		fv["user_return_value_ratio"] = clamp01(user.AvgReturnValue / user.AvgOrderValue)
	} else {
		fv["user_return_value_ratio"] = 0
	}

	// Newness risk: 1 for a brand-new account, 0 once a year old.
	fv[featAccountAge] = clamp01(1 - float64(user.AccountAgeDays)/365)

	fv[featSizeAccuracy] = clamp01(orDefault(user.SizeAccuracy, defaultSizeAccuracy))
	fv["user_review_score"] = clamp01(orDefault(user.ReviewScore, defaultReviewScore) / 5)
	fv[featLoyaltyTier] = tierValue(user.LoyaltyTier)

	fv["user_brand_match"] = matchValue(product.Brand, user.PreferredBrands)
	fv["user_category_match"] = matchValue(product.Category, user.PreferredCategories)

	fv["user_device_consistency"] = clamp01(orDefault(user.DeviceConsistency, defaultDeviceConsistency))
	fv["user_payment_history_depth"] = logScale(float64(user.PaymentMethodCount))
}

func engineerProductFeatures(fv FeatureVector, product ProductInfo) {
	category := normalizeKey(product.Category)

	fv["product_return_rate"] = productReturnRate(product, category)
	fv["product_category_risk"] = categoryBaseRisk(category)
	fv["product_brand_risk"] = brandRisk(product.Brand)
	fv["product_fit_type"] = fitValue(product.FitType)

	// Inverted rating: a 5-star product scores 0, an unrated one 0.4.
	rating := product.RatingAvg
	if rating <= 0 {
		rating = defaultReviewScore
	}
	fv["product_rating_risk"] = clamp01(1 - rating/5)
	fv[featRatingCount] = logScale(float64(product.RatingCount))
	fv[featSoldCount] = logScale(float64(product.TotalSold))
	fv["product_return_count"] = logScale(float64(product.ReturnCount))

	fv["product_price"] = clamp01(product.Price / priceCeiling)
	avg := categoryAvgPrice[category]
	if avg == 0 {
		avg = defaultCategoryAvgPrice
	}
	fv["product_price_ratio"] = clamp01(product.Price / avg / 2)
	fv["product_price_band"] = priceBand(product.Price)

	fv["product_stock_status"] = stockValue(product.StockStatus)
	fv["product_is_seasonal"] = binary(product.IsSeasonal, 0.75, 0.25)
	fv["product_is_clearance"] = binary(product.IsClearance, 0.75, 0.25)
	fv["product_has_size_chart"] = binary(product.HasSizeChart, 0.3, 0.6)
	fv["product_fabric_risk"] = binary(delicateFabrics[normalizeKey(product.Fabric)], 0.7, 0.35)
}

func engineerContextFeatures(fv FeatureVector, txn TransactionContext) {
	fv["context_device_type"] = deviceValue(txn.DeviceType)
	fv[featIsNewCustomer] = binary(txn.IsNewCustomer, 0.8, 0.2)
	fv[featIsGift] = binary(txn.IsGift, 0.8, 0.2)
	fv["context_shipping_speed"] = shippingValue(txn.ShippingSpeed)
	fv["context_payment_method"] = paymentValue(txn.PaymentMethod)
	fv["context_has_promotion"] = binary(txn.HasPromotion, 0.6, 0.3)
	fv["context_discount_magnitude"] = clamp01(txn.DiscountPct)
	fv["context_return_window"] = clamp01(float64(txn.ReturnWindowDays) / 90)
	fv[featInternational] = binary(txn.IsInternational, 0.8, 0.2)
	fv[featReturnedBrand] = binary(txn.ReturnedBrandBefore, 0.9, 0.1)
	fv["context_days_since_last_purchase"] = clamp01(float64(txn.DaysSinceLastPurchase) / 365)
}

// priceCeiling is the fixed denominator for direct price scaling.
const priceCeiling = 1000.0

func productReturnRate(product ProductInfo, category string) float64 {
	if product.TotalSold > 0 {
		return clamp01(float64(product.ReturnCount) / float64(product.TotalSold))
	}
	// No sales history: fall back to the category tier default.
	switch {
	case highRiskCategories[category]:
		return 0.30
	case mediumRiskCategories[category]:
		return 0.22
	default:
		return 0.15
	}
}

func categoryBaseRisk(category string) float64 {
	switch {
	case highRiskCategories[category]:
		return 0.8
	case mediumRiskCategories[category]:
		return 0.5
	default:
		return 0.25
	}
}

func brandRisk(brand string) float64 {
	key := normalizeKey(brand)
	switch {
	case reliableBrands[key]:
		return 0.25
	case riskyBrands[key]:
		return 0.8
	default:
		// Unknown brands take the higher-risk branch.
		return 0.65
	}
}

func fitValue(fit string) float64 {
	switch normalizeKey(fit) {
	case "tight":
		return 0.8
	case "oversized":
		return 0.6
	case "loose":
		return 0.45
	case "normal":
		return 0.25
	default:
		return 0.25
	}
}

func stockValue(status string) float64 {
	switch normalizeKey(status) {
	case "in_stock":
		return 0.2
	case "low_stock":
		return 0.5
	case "backordered":
		return 0.6
	case "preorder":
		return 0.7
	default:
		return 0.3
	}
}

func deviceValue(device string) float64 {
	switch normalizeKey(device) {
	case "mobile":
		return 0.6
	case "tablet":
		return 0.5
	case "desktop":
		return 0.3
	default:
		return 0.45
	}
}

func shippingValue(speed string) float64 {
	switch normalizeKey(speed) {
	case "overnight":
		return 0.7
	case "express":
		return 0.6
	case "standard":
		return 0.3
	case "economy":
		return 0.25
	default:
		return 0.4
	}
}

func paymentValue(method string) float64 {
	switch normalizeKey(method) {
	case "credit_card":
		return 0.35
	case "debit_card":
		return 0.3
	case "apple_pay", "google_pay":
		return 0.3
	case "paypal":
		return 0.4
	case "klarna", "afterpay", "affirm", "bnpl":
		return 0.75
	case "gift_card":
		return 0.5
	default:
		// Unseen methods land in the "other" bucket.
		return 0.3
	}
}

func matchValue(item string, preferred []string) float64 {
	key := normalizeKey(item)
	for _, p := range preferred {
		if normalizeKey(p) == key && key != "" {
			return prefMatch
		}
	}
	return prefNoMatch
}

func priceBand(price float64) float64 {
	switch {
	case price < 25:
		return 0.2
	case price < 100:
		return 0.4
	case price < 300:
		return 0.6
	default:
		return 0.8
	}
}

// logScale compresses heavy-tailed counts: log1p(x)/10, clamped. A count
// of ~20 maps to ~0.3 and ~22000 saturates at 1.
func logScale(count float64) float64 {
	if count <= 0 {
		return 0
	}
	return clamp01(math.Log1p(count) / 10)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func binary(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, " ", "_")))
}
