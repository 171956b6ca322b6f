package outbox

import (
	"context"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
)

// Repository describes outbox operations.
type Repository interface {
	// Insert appends a pending entry and returns its local id.
	Insert(ctx context.Context, e *models.OutboxEntry) (int64, error)

	// ListPending returns entries not marked synced, oldest first.
	ListPending(ctx context.Context) ([]models.OutboxEntry, error)

	// MarkSynced flags an entry as acknowledged and records the remote id.
	MarkSynced(ctx context.Context, localID int64, remoteID int64) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, localID int64) error

	// DeleteSynced removes every entry marked synced and returns how many.
	DeleteSynced(ctx context.Context) (int, error)

	// CountPending returns the number of entries not marked synced.
	CountPending(ctx context.Context) (int, error)
}
