package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const runColumns = `id, provider, model, recommended_model, confidence, is_fallback, attempts, created_at`

func (s *PostgresStore) CreateAnalysisRun(ctx context.Context, run *models.AnalysisRun) error {
	attempts := run.Attempts
	if attempts == nil {
		attempts = []models.ProviderAttempt{}
	}
	attemptsJSON, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Provider, run.Model, run.RecommendedModel, run.Confidence,
		run.IsFallback, attemptsJSON, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("create analysis run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysisRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	run, err := scanRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis run: %w", err)
	}
	return run, nil
}

// ListRecentRuns returns the newest runs first. limit is clamped to [1, MaxListLimit].
func (s *PostgresStore) ListRecentRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM analysis_runs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analysis runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.AnalysisRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.AnalysisRun, error) {
	var (
		r            models.AnalysisRun
		attemptsJSON []byte
	)
	if err := row.Scan(&r.ID, &r.Provider, &r.Model, &r.RecommendedModel, &r.Confidence,
		&r.IsFallback, &attemptsJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attemptsJSON, &r.Attempts); err != nil {
		return nil, fmt.Errorf("decode attempts: %w", err)
	}
	return &r, nil
}

var _ Store = (*PostgresStore)(nil)
