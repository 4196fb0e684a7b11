package migrations

import (
	"context"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"ticket-marketplace/internal/store"
)

// Marketplace tables live next to the PocketBase system collections when no
// external database is configured.
func init() {
	m.Register(func(app core.App) error {
		return store.Migrate(context.Background(), app.DB())
	}, func(app core.App) error {
		return store.Drop(context.Background(), app.DB())
	})
}
