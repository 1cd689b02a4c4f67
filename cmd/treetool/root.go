package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacksonlee411/tree-of-life/internal/config"
	"github.com/jacksonlee411/tree-of-life/internal/logging"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/domain/ports"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/infrastructure/persistence"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/infrastructure/pgbackend"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/infrastructure/sqlitebackend"
	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/services"
)

type rootOptions struct {
	configPath string
	driver     string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "treetool",
		Short:         "Store and query the Tree of Life as materialized paths",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to treetool.yaml (default: $TREETOOL_CONFIG or config/treetool.yaml)")
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "database driver override: postgres or sqlite")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		newInitCmd(opts),
		newImportCmd(opts),
		newNodeCmd(opts),
		newTreeCmd(opts),
		newSubTreeCmd(opts),
		newChildrenCmd(opts),
		newPathCmd(opts),
		newParentCmd(opts),
		newAddCmd(opts),
		newMoveCmd(opts),
		newDeleteCmd(opts),
	)
	return cmd
}

// session is everything one command invocation needs: the store, the
// facade in front of it, and a close hook for the backend.
type session struct {
	store   *persistence.TreeStore
	service services.TreeFacade
	logger  *zap.Logger
	close   func()
}

func openSession(ctx context.Context, opts *rootOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	var (
		db      ports.Beginner
		closeDB func()
	)
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		b, err := sqlitebackend.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		db = b
		closeDB = func() { _ = b.Close() }
	default:
		pool, err := pgbackend.Open(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		db = pgbackend.New(pool)
		closeDB = pool.Close
	}

	store, err := persistence.NewTreeStore(db, persistence.Config{
		NodeTable: cfg.Store.NodeTable,
		PathTable: cfg.Store.PathTable,
		BatchSize: cfg.Store.BatchSize,
	}, logger)
	if err != nil {
		closeDB()
		return nil, err
	}

	logger.Debug("session opened", zap.String("driver", cfg.Database.Driver))
	return &session{
		store:   store,
		service: services.NewTreeFacade(store),
		logger:  logger,
		close: func() {
			closeDB()
			_ = logger.Sync()
		},
	}, nil
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}

func parseIDArg(name string, v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return id, nil
}
