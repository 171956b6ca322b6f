package cli

import (
	"context"

	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
)

// Sync pushes the outbox and pulls new server reports.
func (a *App) Sync(ctx context.Context) error {
	ctx, release := a.fetches.Begin(ctx)
	defer release()

	pushed, pulled, err := a.sync.SyncAll(ctx)
	if err != nil {
		if services.IsSkipped(err) && pushed == 0 && pulled == 0 {
			a.println("Sync skipped:", err)
			return nil
		}
		a.printf("Sync finished with errors (%d sent, %d received): %v\n", pushed, pulled, err)
		return err
	}
	a.printf("Sync finished (%d sent, %d received)\n", pushed, pulled)
	return nil
}

// Reload replaces the local report cache with the server list.
func (a *App) Reload(ctx context.Context) error {
	ctx, release := a.fetches.Begin(ctx)
	defer release()

	n, err := a.sync.ReloadCache(ctx)
	if err != nil {
		if services.IsSkipped(err) {
			a.println("Reload skipped:", err)
			return nil
		}
		a.println("Reload failed:", err)
		return err
	}
	a.printf("Cache reloaded (%d reports)\n", n)
	return nil
}
