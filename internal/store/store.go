package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// ErrNoDatabase is returned by callers that need the run ledger when none is configured.
var ErrNoDatabase = errors.New("database not configured")

// MaxListLimit caps how many runs a single listing returns.
const MaxListLimit = 100

// Store is the data access interface for the analysis run ledger.
type Store interface {
	Ping(ctx context.Context) error

	CreateAnalysisRun(ctx context.Context, run *models.AnalysisRun) error
	GetAnalysisRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
}
