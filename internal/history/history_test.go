package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/styleshepherd/returnrisk/internal/risk"
)

func samplePrediction() *risk.RiskPrediction {
	return &risk.RiskPrediction{
		RiskScore:    0.42,
		RiskLevel:    risk.LevelMedium,
		Confidence:   0.7,
		ModelVersion: "1.0.0",
		Factors: []risk.Factor{
			{Name: "user_return_rate", Impact: 0.12, Value: "0.500", Contribution: 0.06},
			{Name: "product_category_risk", Impact: 0.06, Value: "0.800", Contribution: 0.048},
		},
	}
}

func TestRecordPrediction(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	event := risk.PredictionEvent{
		UserID:     "u1",
		ProductID:  "p1",
		Prediction: samplePrediction(),
		Features:   risk.FeatureVector{"user_return_rate": 0.5},
		CreatedAt:  time.Now(),
	}
	if err := svc.RecordPrediction(ctx, event); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := svc.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if !strings.HasPrefix(rec.ID, "pred_") {
		t.Errorf("id = %q, want pred_ prefix", rec.ID)
	}
	if rec.UserID != "u1" || rec.ProductID != "p1" {
		t.Errorf("ids not mapped: %+v", rec)
	}
	if rec.RiskScore != 0.42 || rec.RiskLevel != "medium" {
		t.Errorf("prediction not mapped: %+v", rec)
	}
	if len(rec.TopFactors) != 2 || rec.TopFactors[0] != "user_return_rate" {
		t.Errorf("top factors = %v", rec.TopFactors)
	}
	if rec.Contributions["user_return_rate"] != 0.06 {
		t.Errorf("contributions = %v", rec.Contributions)
	}
	if rec.Returned != nil {
		t.Error("fresh record should be unlabeled")
	}
}

func TestRecordPredictionCacheHitSkipsContributions(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	// Cache hits carry no feature vector; contributions stay empty.
	event := risk.PredictionEvent{
		UserID:     "u1",
		ProductID:  "p1",
		Prediction: samplePrediction(),
		Features:   nil,
		CacheHit:   true,
	}
	if err := svc.RecordPrediction(ctx, event); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, _ := svc.List(ctx, ListOptions{})
	rec := records[0]
	if !rec.CacheHit {
		t.Error("cache hit flag not mapped")
	}
	if rec.Contributions != nil {
		t.Errorf("cache hit should have no contributions, got %v", rec.Contributions)
	}
	// Top factor names still recorded for audit.
	if len(rec.TopFactors) != 2 {
		t.Errorf("top factors = %v", rec.TopFactors)
	}
	// Zero CreatedAt is backfilled.
	if rec.CreatedAt.IsZero() {
		t.Error("created at should be backfilled")
	}
}

func TestLabelOutcomeRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	_ = svc.RecordPrediction(ctx, risk.PredictionEvent{
		UserID: "u1", ProductID: "p1", Prediction: samplePrediction(),
		Features: risk.FeatureVector{}, CreatedAt: time.Now(),
	})
	records, _ := svc.List(ctx, ListOptions{})
	id := records[0].ID

	if err := svc.LabelOutcome(ctx, id, true); err != nil {
		t.Fatalf("label: %v", err)
	}

	rows, err := svc.TrainingRows(ctx, 10)
	if err != nil {
		t.Fatalf("training rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("labeled rows = %d, want 1", len(rows))
	}
	if rows[0].Returned == nil || !*rows[0].Returned {
		t.Error("outcome not joined into training row")
	}

	if err := svc.LabelOutcome(ctx, "pred_missing", true); err != ErrRecordNotFound {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}
