// Package history records served predictions for auditing and offline
// model training.
//
// The scoring engine itself is stateless; this package is where served
// predictions land so the trainer can later join them against actual
// return outcomes. Recording is best-effort by contract: a failed write
// is logged and counted, never surfaced to the buyer-facing request.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/styleshepherd/returnrisk/internal/idgen"
	"github.com/styleshepherd/returnrisk/internal/retry"
	"github.com/styleshepherd/returnrisk/internal/risk"
)

var (
	ErrRecordNotFound = errors.New("prediction record not found")
)

// Insert retry bounds. Writes are best-effort, so a short backoff is
// enough to ride out a connection blip without stalling the caller.
const (
	insertAttempts  = 3
	insertBaseDelay = 50 * time.Millisecond
)

// Record is one served prediction.
type Record struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`

	RiskScore    float64 `json:"riskScore"`
	RiskLevel    string  `json:"riskLevel"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"modelVersion"`
	CacheHit     bool    `json:"cacheHit"`

	// TopFactors holds the ranked factor names; Contributions the signed
	// per-feature contributions for the training export. Contributions
	// is empty for cache hits (features are not re-engineered).
	TopFactors    []string           `json:"topFactors"`
	Contributions map[string]float64 `json:"contributions,omitempty"`

	// Returned is the eventual outcome, set once the return window
	// closes. Nil until labeled.
	Returned *bool `json:"returned,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ListOptions filter record listings.
type ListOptions struct {
	Limit  int
	Level  string
	UserID string
}

// Stats aggregates the recorded corpus.
type Stats struct {
	Total        int            `json:"total"`
	ByLevel      map[string]int `json:"byLevel"`
	AvgScore     float64        `json:"avgScore"`
	CacheHits    int            `json:"cacheHits"`
	LabeledCount int            `json:"labeledCount"`
}

// Store persists prediction records.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
	SetOutcome(ctx context.Context, id string, returned bool) error
	Stats(ctx context.Context) (*Stats, error)

	// TrainingRows returns labeled records, oldest first, for the
	// offline trainer.
	TrainingRows(ctx context.Context, limit int) ([]*Record, error)
}

// Service records predictions and answers history queries. It satisfies
// risk.Recorder.
type Service struct {
	store Store
}

// NewService creates a history service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Compile-time interface check.
var _ risk.Recorder = (*Service)(nil)

// RecordPrediction persists one served prediction.
func (s *Service) RecordPrediction(ctx context.Context, event risk.PredictionEvent) error {
	rec := &Record{
		ID:           idgen.WithPrefix("pred_"),
		UserID:       event.UserID,
		ProductID:    event.ProductID,
		RiskScore:    event.Prediction.RiskScore,
		RiskLevel:    string(event.Prediction.RiskLevel),
		Confidence:   event.Prediction.Confidence,
		ModelVersion: event.Prediction.ModelVersion,
		CacheHit:     event.CacheHit,
		CreatedAt:    event.CreatedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	for _, f := range event.Prediction.Factors {
		rec.TopFactors = append(rec.TopFactors, f.Name)
	}

	if event.Features != nil {
		rec.Contributions = make(map[string]float64, len(event.Prediction.Factors))
		for _, f := range event.Prediction.Factors {
			rec.Contributions[f.Name] = f.Contribution
		}
	}

	return retry.Do(ctx, insertAttempts, insertBaseDelay, func() error {
		return s.store.Insert(ctx, rec)
	})
}

// Get returns one record by ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// List returns records matching the options, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	return s.store.List(ctx, opts)
}

// LabelOutcome marks whether the purchase was actually returned.
func (s *Service) LabelOutcome(ctx context.Context, id string, returned bool) error {
	return s.store.SetOutcome(ctx, id, returned)
}

// Stats aggregates the recorded corpus.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// TrainingRows returns labeled rows for the offline trainer.
func (s *Service) TrainingRows(ctx context.Context, limit int) ([]*Record, error) {
	return s.store.TrainingRows(ctx, limit)
}
