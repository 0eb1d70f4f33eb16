package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. Schema lives in
// migrations/ and is applied by cmd/migrate.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed history store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// Insert stores a record.
func (p *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	var contributions []byte
	if rec.Contributions != nil {
		b, err := json.Marshal(rec.Contributions)
		if err != nil {
			return fmt.Errorf("marshal contributions: %w", err)
		}
		contributions = b
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO risk_predictions (
			id, user_id, product_id, risk_score, risk_level,
			confidence, model_version, cache_hit, top_factors,
			contributions, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		rec.ID, rec.UserID, rec.ProductID, rec.RiskScore, rec.RiskLevel,
		rec.Confidence, rec.ModelVersion, rec.CacheHit, pq.Array(rec.TopFactors),
		contributions, rec.CreatedAt,
	)
	return err
}

// Get retrieves a record by ID.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := p.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

// List returns matching records, newest first.
func (p *PostgresStore) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	query := selectColumns + ` WHERE 1=1`
	args := []any{}

	if opts.Level != "" {
		args = append(args, opts.Level)
		query += fmt.Sprintf(" AND risk_level = $%d", len(args))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetOutcome labels a record with its actual return outcome.
func (p *PostgresStore) SetOutcome(ctx context.Context, id string, returned bool) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE risk_predictions SET returned = $2, labeled_at = NOW() WHERE id = $1
	`, id, returned)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Stats aggregates the stored corpus.
func (p *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByLevel: make(map[string]int)}

	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(risk_score), 0),
		       COUNT(*) FILTER (WHERE cache_hit),
		       COUNT(*) FILTER (WHERE returned IS NOT NULL)
		FROM risk_predictions
	`).Scan(&stats.Total, &stats.AvgScore, &stats.CacheHits, &stats.LabeledCount)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*) FROM risk_predictions GROUP BY risk_level
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		stats.ByLevel[level] = count
	}
	return stats, rows.Err()
}

// TrainingRows returns labeled records, oldest first.
func (p *PostgresStore) TrainingRows(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := p.db.QueryContext(ctx,
		selectColumns+` WHERE returned IS NOT NULL ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT id, user_id, product_id, risk_score, risk_level,
	       confidence, model_version, cache_hit, top_factors,
	       contributions, returned, created_at
	FROM risk_predictions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var contributions []byte
	var returned sql.NullBool

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.ProductID, &rec.RiskScore, &rec.RiskLevel,
		&rec.Confidence, &rec.ModelVersion, &rec.CacheHit, pq.Array(&rec.TopFactors),
		&contributions, &returned, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(contributions) > 0 {
		if err := json.Unmarshal(contributions, &rec.Contributions); err != nil {
			return nil, fmt.Errorf("unmarshal contributions: %w", err)
		}
	}
	if returned.Valid {
		rec.Returned = &returned.Bool
	}
	return rec, nil
}
