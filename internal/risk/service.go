package risk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/styleshepherd/returnrisk/internal/metrics"
	"github.com/styleshepherd/returnrisk/internal/traces"
)

// PredictionEvent is the record handed to a Recorder for every served
// prediction.
type PredictionEvent struct {
	UserID    string
	ProductID string

	Prediction *RiskPrediction
	Features   FeatureVector
	CacheHit   bool
	CreatedAt  time.Time
}

// Recorder persists served predictions for offline analysis and model
// training. Implementations must be safe for concurrent use. Recording
// is best-effort: a failed write never fails the prediction.
type Recorder interface {
	RecordPrediction(ctx context.Context, event PredictionEvent) error
}

// PredictionInput bundles the three records for one batch item.
type PredictionInput struct {
	User    UserProfile        `json:"user"`
	Product ProductInfo        `json:"product"`
	Context TransactionContext `json:"context"`
}

// Service wires feature engineering, the model, explanation, and
// recommendations behind single and batch prediction entry points, with
// a TTL cache in front.
type Service struct {
	model    *Model
	cache    *Cache
	recorder Recorder
	workers  int
	logger   *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithRecorder attaches a prediction history recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithCacheTTL overrides the prediction cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cache = NewCache(ttl) }
}

// WithWorkers sets the batch concurrency bound.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// defaultBatchWorkers bounds batch fan-out. Scoring is pure CPU work, so
// there is no win in going far past the core count.
const defaultBatchWorkers = 8

// NewService creates a scoring service over the given model.
func NewService(model *Model, opts ...Option) *Service {
	s := &Service{
		model:   model,
		cache:   NewCache(DefaultCacheTTL),
		workers: defaultBatchWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the underlying model (for policy introspection).
func (s *Service) Model() *Model {
	return s.model
}

// Cache returns the prediction cache (for operational purge).
func (s *Service) Cache() *Cache {
	return s.cache
}

// Predict scores one purchase attempt. The returned prediction is shared
// with the cache and must be treated as read-only.
func (s *Service) Predict(ctx context.Context, user UserProfile, product ProductInfo, txn TransactionContext) *RiskPrediction {
	ctx, span := traces.StartSpan(ctx, "risk.predict",
		traces.UserID(user.ID),
		traces.ProductID(product.ID),
	)
	defer span.End()

	key := CacheKey(user.ID, product.ID, txn.DeviceType, txn.IsNewCustomer)
	if pred := s.cache.Get(key); pred != nil {
		metrics.CacheHitsTotal.Inc()
		// Served is served: hits count toward the by-level totals too.
		metrics.PredictionsTotal.WithLabelValues(string(pred.RiskLevel)).Inc()
		span.SetAttributes(traces.CacheHit(true), traces.RiskLevel(string(pred.RiskLevel)))
		s.record(ctx, user.ID, product.ID, pred, nil, true)
		return pred
	}
	metrics.CacheMissesTotal.Inc()

	start := time.Now()
	fv := EngineerFeatures(user, product, txn)
	score, level, confidence := s.model.Score(fv)
	policy := s.model.Policy()
	factors := TopFactors(fv, policy.Weights, policy.TopFactorLimit)

	pred := &RiskPrediction{
		RiskScore:       score,
		RiskLevel:       level,
		Confidence:      confidence,
		Factors:         factors,
		Recommendations: Recommend(level, factors, user, product, txn),
		ModelVersion:    policy.Version,
		BaselineRisk:    policy.BaselineRisk,
	}
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	metrics.PredictionsTotal.WithLabelValues(string(level)).Inc()
	span.SetAttributes(traces.CacheHit(false), traces.RiskLevel(string(level)))

	s.cache.Put(key, pred)
	s.record(ctx, user.ID, product.ID, pred, fv, false)

	return pred
}

// PredictBatch scores every input independently and returns predictions
// in input order. Items run concurrently up to the worker bound; there
// is no cross-item interaction, so the only shared state is the cache.
func (s *Service) PredictBatch(ctx context.Context, items []PredictionInput) []*RiskPrediction {
	ctx, span := traces.StartSpan(ctx, "risk.predict_batch", traces.BatchItems(len(items)))
	defer span.End()

	metrics.BatchSize.Observe(float64(len(items)))

	results := make([]*RiskPrediction, len(items))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item PredictionInput) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.Predict(ctx, item.User, item.Product, item.Context)
		}(i, item)
	}
	wg.Wait()

	return results
}

func (s *Service) record(ctx context.Context, userID, productID string, pred *RiskPrediction, fv FeatureVector, cacheHit bool) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.RecordPrediction(ctx, PredictionEvent{
		UserID:     userID,
		ProductID:  productID,
		Prediction: pred,
		Features:   fv,
		CacheHit:   cacheHit,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		s.logger.Warn("prediction history write failed",
			"user_id", userID,
			"product_id", productID,
			"error", err,
		)
	}
}

// FallbackPrediction is the documented stand-in the HTTP layer serves
// when the engine cannot run (it should never happen for well-typed
// input, but upstream orchestration needs a total answer).
func FallbackPrediction(policy Policy) *RiskPrediction {
	return &RiskPrediction{
		RiskScore:  0.25,
		RiskLevel:  LevelMedium,
		Confidence: 0.5,
		Factors:    []Factor{},
		Recommendations: []string{
			RecStandardHandling,
			RecSizeGuideNudge,
		},
		ModelVersion: policy.Version,
		BaselineRisk: policy.BaselineRisk,
	}
}
