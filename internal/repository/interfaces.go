package repository

import (
	"context"
	"time"

	"camdash/internal/dto"
	"camdash/internal/model"
)

// ActivityRepository defines the interface for activity journal operations.
type ActivityRepository interface {
	// Create operations
	Insert(ctx context.Context, a *model.Activity) (int64, error)

	// Read operations
	Recent(ctx context.Context, filter *dto.ActivityFilter) ([]model.Activity, error)
	CountByKind(ctx context.Context) (map[model.ActivityKind]int, error)

	// Delete operations
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
	DeleteAll(ctx context.Context) error
}
