// Package risk implements the return risk scoring engine.
//
// The engine predicts, before checkout completes, how likely a purchased
// item is to be returned. It is a fixed, hand-authored scoring policy -
// not a trained model: a weighted aggregation over ~50 normalized features,
// followed by ordered business-rule and fairness adjustments. The weights
// and rule deltas are an inspectable policy (see Policy), versioned so
// downstream consumers can tell which policy produced a prediction.
//
// All scoring is pure and CPU-bound. The engine performs no I/O; callers
// assemble the three input records (user, product, transaction context)
// and receive a RiskPrediction. The only long-lived state the package
// owns is the prediction cache.
package risk

// LoyaltyTier is an ordered customer segment. Higher tiers earn score
// discounts through rule adjustments.
type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

// RiskLevel is the discretized band of a risk score, used for UI and
// action routing.
type RiskLevel string

const (
	LevelVeryLow  RiskLevel = "very_low"
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelVeryHigh RiskLevel = "very_high"
)

// UserProfile carries the behavioral aggregates for the buyer.
// ReturnRate may be externally smoothed and is not required to equal
// TotalReturns/TotalPurchases; it is clamped to [0,1] during feature
// engineering. Optional fields use nil/zero to mean "absent" and resolve
// to documented defaults.
type UserProfile struct {
	ID             string  `json:"id"`
	TotalPurchases int     `json:"totalPurchases"`
	TotalReturns   int     `json:"totalReturns"`
	ReturnRate     float64 `json:"returnRate"`
	AvgOrderValue  float64 `json:"avgOrderValue"`
	AvgReturnValue float64 `json:"avgReturnValue"`
	AccountAgeDays int     `json:"accountAgeDays"`

	// SizeAccuracy is the historical accuracy of size predictions for
	// this user, 0-1. Nil means no history.
	SizeAccuracy *float64 `json:"sizeAccuracy,omitempty"`

	// ReviewScore is the user's average review score, 0-5. Nil means the
	// user has never reviewed.
	ReviewScore *float64 `json:"reviewScore,omitempty"`

	// LoyaltyTier defaults to bronze when empty.
	LoyaltyTier LoyaltyTier `json:"loyaltyTier,omitempty"`

	PreferredBrands     []string `json:"preferredBrands,omitempty"`
	PreferredCategories []string `json:"preferredCategories,omitempty"`
	PreferredSize       string   `json:"preferredSize,omitempty"`

	// DeviceConsistency is how consistently the user shops from the same
	// device, 0-1. Nil means unknown.
	DeviceConsistency *float64 `json:"deviceConsistency,omitempty"`

	// PaymentMethodCount is the number of distinct payment methods the
	// user has used historically.
	PaymentMethodCount int `json:"paymentMethodCount,omitempty"`
}

// ProductInfo carries catalog attributes for the purchased item.
type ProductInfo struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`

	// FitType is one of tight, normal, loose, oversized. Unknown values
	// fall back to normal.
	FitType string `json:"fitType,omitempty"`

	RatingAvg   float64 `json:"ratingAvg,omitempty"` // 0 means unrated
	RatingCount int     `json:"ratingCount,omitempty"`

	// ReturnCount/TotalSold derive the product's own return rate when
	// TotalSold > 0; otherwise the category default applies.
	ReturnCount int `json:"returnCount,omitempty"`
	TotalSold   int `json:"totalSold,omitempty"`

	// StockStatus is one of in_stock, low_stock, backordered, preorder.
	StockStatus string `json:"stockStatus,omitempty"`

	IsSeasonal   bool   `json:"isSeasonal,omitempty"`
	IsClearance  bool   `json:"isClearance,omitempty"`
	Fabric       string `json:"fabric,omitempty"`
	HasSizeChart bool   `json:"hasSizeChart,omitempty"`
}

// TransactionContext carries per-attempt attributes of the purchase.
type TransactionContext struct {
	DeviceType    string `json:"deviceType,omitempty"` // mobile, tablet, desktop
	IsNewCustomer bool   `json:"isNewCustomer,omitempty"`
	IsGift        bool   `json:"isGift,omitempty"`
	ShippingSpeed string `json:"shippingSpeed,omitempty"` // economy, standard, express, overnight
	PaymentMethod string `json:"paymentMethod,omitempty"`
	HasPromotion  bool   `json:"hasPromotion,omitempty"`

	// DiscountPct is the applied discount as a fraction, 0-1.
	DiscountPct float64 `json:"discountPct,omitempty"`

	ReturnWindowDays      int  `json:"returnWindowDays,omitempty"`
	IsInternational       bool `json:"isInternational,omitempty"`
	ReturnedBrandBefore   bool `json:"returnedBrandBefore,omitempty"`
	DaysSinceLastPurchase int  `json:"daysSinceLastPurchase,omitempty"`
}

// Factor is one feature's contribution to a prediction, used for
// explanation. Value is the normalized feature value formatted as a
// string for display; Contribution = value * impact.
type Factor struct {
	Name         string  `json:"name"`
	Impact       float64 `json:"impact"`
	Value        string  `json:"value"`
	Contribution float64 `json:"contribution"`
}

// RiskPrediction is the engine's output record.
type RiskPrediction struct {
	RiskScore       float64   `json:"riskScore"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Confidence      float64   `json:"confidence"`
	Factors         []Factor  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
	ModelVersion    string    `json:"modelVersion"`
	BaselineRisk    float64   `json:"baselineRisk"`
}

// tierValue encodes loyalty tiers on an ascending 0-1 scale. The rule
// thresholds in Policy read this encoding directly (>0.7 means platinum,
// >0.5 means gold or above).
func tierValue(t LoyaltyTier) float64 {
	switch t {
	case TierPlatinum:
		return 0.95
	case TierGold:
		return 0.7
	case TierSilver:
		return 0.45
	case TierBronze:
		return 0.2
	default:
		// Absent tier defaults to bronze.
		return 0.2
	}
}
