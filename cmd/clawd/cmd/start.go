package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/RobotsMakeThings/clawcasino/internal/api"
	"github.com/RobotsMakeThings/clawcasino/internal/app"
	"github.com/RobotsMakeThings/clawcasino/internal/bus"
	"github.com/RobotsMakeThings/clawcasino/internal/config"
	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/sched"
	"github.com/RobotsMakeThings/clawcasino/internal/store"
)

const (
	flagConfig = "config"

	shutdownGrace = 5 * time.Second
)

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the casino server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	return cmd
}

func serve(cfg config.Config) error {
	filter, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewLogger(os.Stderr, log.FilterOption(filter))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, logger, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	ledgerCfg, err := cfg.LedgerConfig()
	if err != nil {
		return err
	}
	bank := ledger.New(logger, st, ledgerCfg)
	if err := bank.Init(ctx); err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	casinoCfg, err := cfg.CasinoConfig()
	if err != nil {
		return err
	}
	caps, err := cfg.CapTable()
	if err != nil {
		return err
	}

	events := bus.New(logger)
	defer events.Close()

	casino, err := app.New(logger, sched.SystemClock{}, bank, events, st, casinoCfg)
	if err != nil {
		return fmt.Errorf("build casino: %w", err)
	}
	go casino.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.New(logger, casino, caps).Router(),
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Error("http shutdown", "err", err)
		}
	}()

	logger.Info("server listening", "addr", cfg.Listen, "store", cfg.Store.Backend, "tables", len(cfg.Tables))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore builds the configured persistence backend. The returned
// closer is always safe to call.
func openStore(ctx context.Context, logger log.Logger, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		logger.Info("using in-memory store; state is lost on restart")
		return store.NewMemory(), func() {}, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("store backend postgres needs a dsn")
		}
		pg, err := store.NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
