package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/styleshepherd/returnrisk/internal/metrics"
)

// stubRecorder captures prediction events for inspection.
type stubRecorder struct {
	mu     sync.Mutex
	events []PredictionEvent
	err    error
}

func (r *stubRecorder) RecordPrediction(_ context.Context, event PredictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *stubRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *stubRecorder) event(i int) PredictionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

func newTestService(opts ...Option) *Service {
	return NewService(NewModel(DefaultPolicy()), opts...)
}

func TestPredictProducesCompleteOutput(t *testing.T) {
	svc := newTestService()
	user, product, txn := riskyFirstPurchase()

	pred := svc.Predict(context.Background(), user, product, txn)

	if pred.RiskScore < 0 || pred.RiskScore > 1 {
		t.Errorf("score out of range: %v", pred.RiskScore)
	}
	if pred.RiskLevel == "" {
		t.Error("missing risk level")
	}
	if len(pred.Factors) != DefaultPolicy().TopFactorLimit {
		t.Errorf("factor count = %d, want %d", len(pred.Factors), DefaultPolicy().TopFactorLimit)
	}
	if len(pred.Recommendations) == 0 {
		t.Error("missing recommendations")
	}
	if pred.ModelVersion != "1.0.0" {
		t.Errorf("model version = %s", pred.ModelVersion)
	}
	if pred.BaselineRisk != 0.15 {
		t.Errorf("baseline risk = %v", pred.BaselineRisk)
	}
}

func TestPredictCachesByKey(t *testing.T) {
	rec := &stubRecorder{}
	svc := newTestService(WithRecorder(rec))
	user, product, txn := trustedRepeatCustomer()

	first := svc.Predict(context.Background(), user, product, txn)
	second := svc.Predict(context.Background(), user, product, txn)

	if first != second {
		t.Error("second identical prediction should come from the cache")
	}

	// Both servings are recorded; only the miss carries features.
	if rec.count() != 2 {
		t.Fatalf("recorded %d events, want 2", rec.count())
	}
	if rec.event(0).CacheHit {
		t.Error("first serving should be a miss")
	}
	if !rec.event(1).CacheHit {
		t.Error("second serving should be a hit")
	}
	if rec.event(0).Features == nil {
		t.Error("miss should carry the feature vector")
	}
	if rec.event(1).Features != nil {
		t.Error("hit should not carry a feature vector")
	}
}

func TestPredictCountsHitsAsServed(t *testing.T) {
	svc := newTestService()
	user, product, txn := riskyFirstPurchase()

	level := metrics.PredictionsTotal.WithLabelValues(string(LevelHigh))
	before := promtestutil.ToFloat64(level)

	svc.Predict(context.Background(), user, product, txn) // miss
	svc.Predict(context.Background(), user, product, txn) // hit

	if got := promtestutil.ToFloat64(level) - before; got != 2 {
		t.Errorf("served counter rose by %v for two servings, want 2", got)
	}
}

func TestPredictCacheKeyedOnContext(t *testing.T) {
	svc := newTestService()
	user, product, txn := trustedRepeatCustomer()

	first := svc.Predict(context.Background(), user, product, txn)

	txn.DeviceType = "mobile"
	second := svc.Predict(context.Background(), user, product, txn)

	if first == second {
		t.Error("different device type must not share a cache entry")
	}
}

func TestPredictRecorderFailureDoesNotFail(t *testing.T) {
	rec := &stubRecorder{err: errors.New("store down")}
	svc := newTestService(WithRecorder(rec))
	user, product, txn := riskyFirstPurchase()

	pred := svc.Predict(context.Background(), user, product, txn)
	if pred == nil {
		t.Fatal("prediction must be served even when recording fails")
	}
}

func TestPredictBatchPreservesOrder(t *testing.T) {
	svc := newTestService(WithWorkers(4))

	trustedUser, trustedProduct, trustedTxn := trustedRepeatCustomer()
	riskyUser, riskyProduct, riskyTxn := riskyFirstPurchase()

	items := make([]PredictionInput, 0, 20)
	for i := 0; i < 10; i++ {
		items = append(items,
			PredictionInput{User: trustedUser, Product: trustedProduct, Context: trustedTxn},
			PredictionInput{User: riskyUser, Product: riskyProduct, Context: riskyTxn},
		)
	}

	results := svc.PredictBatch(context.Background(), items)
	if len(results) != len(items) {
		t.Fatalf("got %d results for %d items", len(results), len(items))
	}

	for i, pred := range results {
		if pred == nil {
			t.Fatalf("result %d is nil", i)
		}
		// Even indexes are the trusted customer, odd the risky one.
		if i%2 == 0 && pred.RiskLevel != LevelVeryLow {
			t.Errorf("result %d level = %s, want very_low", i, pred.RiskLevel)
		}
		if i%2 == 1 && pred.RiskLevel != LevelHigh {
			t.Errorf("result %d level = %s, want high", i, pred.RiskLevel)
		}
	}
}

func TestPredictBatchEmpty(t *testing.T) {
	svc := newTestService()
	results := svc.PredictBatch(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("empty batch returned %d results", len(results))
	}
}

func TestWithCacheTTL(t *testing.T) {
	svc := newTestService(WithCacheTTL(time.Minute))
	if svc.cache.ttl != time.Minute {
		t.Errorf("cache ttl = %v, want 1m", svc.cache.ttl)
	}
}
