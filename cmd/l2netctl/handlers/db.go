package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/l2net/internal/config"
)

// DBInit applies the schema the operator expects. It is safe to run against
// an initialized database.
func DBInit(ctx context.Context, configPath string) error {
	return withInventory(configPath, func(cfg *config.Operator, inv Inventory) error {
		if err := inv.Ping(ctx); err != nil {
			return fmt.Errorf("database %s unreachable: %w", cfg.Database.Host, err)
		}
		if err := inv.Migrate(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "schema applied to %s/%s\n", cfg.Database.Host, cfg.Database.Name)
		return err
	})
}
