package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/l2net/internal/config"
	"github.com/imamik/l2net/internal/platform/sdn"
	"github.com/imamik/l2net/internal/store"
)

// Inventory is the read side of the store used by the CLI.
type Inventory interface {
	Ping(ctx context.Context) error
	ListSwitches(ctx context.Context) ([]store.Switch, error)
	ListInterfaces(ctx context.Context, node string) ([]store.InterfaceRow, error)
	ListNetworks(ctx context.Context) ([]store.Network, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Prober checks that the SDN controller answers.
type Prober interface {
	Probe(ctx context.Context) error
}

// Function variables for dependency injection in tests.
var (
	openInventory = func(cfg *config.Operator) (Inventory, error) {
		return store.Open(cfg.StoreConfig())
	}
	newProber = func(cfg *config.Operator) Prober {
		return sdn.NewClient(cfg.SDNConfig())
	}
	loadConfig = config.LoadUnchecked
)

// withInventory loads the configuration, opens the store and runs fn.
func withInventory(configPath string, fn func(cfg *config.Operator, inv Inventory) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database configuration: %w", err)
	}
	inv, err := openInventory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = inv.Close() }()
	return fn(cfg, inv)
}
