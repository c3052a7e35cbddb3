package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

// options are the persistent flags shared by every command.
type options struct {
	dbPath   string
	logLevel string
}

// NewRootCmd builds the splitledger command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "splitledger",
		Short: "splitledger - shared expense ledger",
		Long: `splitledger tracks who paid for which purchased items, who shares each
item, and which payments have been made, and computes who owes whom.

Run "splitledger serve" for the HTTP API, or use the one-shot commands to
work with the ledger database directly.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from DB_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(opts),
		newBalancesCmd(opts),
		newUsersCmd(opts),
		newItemsCmd(opts),
		newAssignCmd(opts),
		newSettleCmd(opts),
	)
	return root
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads configuration and applies flag overrides and logging setup.
func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logging.Setup(cfg.LogLevel)
	return cfg, nil
}

// withService opens the ledger database, runs fn and closes the database.
func (o *options) withService(ctx context.Context, fn func(ctx context.Context, svc *service.LedgerService) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()

	// One-shot commands have no scrape endpoint; counters stay local.
	return fn(ctx, service.NewLedgerService(store, metrics.New()))
}
