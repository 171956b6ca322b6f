package reports

import (
	"context"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
)

// Repository describes the read-cache operations on cached reports.
type Repository interface {
	// Insert stores a report under its remote id. Inserting an id that is
	// already cached is an error.
	Insert(ctx context.Context, r *models.HealthReport) error

	// DeleteAll empties the cache.
	DeleteAll(ctx context.Context) error

	// GetAll returns every cached report, most recent first.
	GetAll(ctx context.Context) ([]models.HealthReport, error)

	// RemoteIDs returns the set of cached remote ids.
	RemoteIDs(ctx context.Context) (map[int64]struct{}, error)

	// Count returns the number of cached reports.
	Count(ctx context.Context) (int, error)
}
