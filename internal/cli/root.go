// Package cli wires configuration, adapters and services into the listingbot commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"listingBot/config"
	"listingBot/internal/adapters/binanceclient"
	"listingBot/internal/adapters/logger"
	"listingBot/internal/adapters/sqlite"
)

type rootOptions struct {
	envFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "listingbot",
		Short: "Trade new spot listings with a bracketed entry and replay recorded listings",
		Long: `listingbot watches the exchange for newly listed symbols, buys each one that
passes the entry gate and protects it with a take-profit and a stop-loss.

Recorded listing events can be replayed with the same rules to measure how a
parameter set would have performed.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default .env)")

	cmd.AddCommand(
		newRunCmd(opts),
		newSimulateCmd(opts),
		newOptimizeCmd(opts),
		newImportEventsCmd(opts),
		newRecordEventsCmd(opts),
		newKlinesCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// env is the shared runtime of a command.
type env struct {
	cfg    *config.Config
	logger *logger.ZeroLogger
	repo   *sqlite.Repository
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		return config.LoadConfig(o.envFile)
	}
	return config.LoadConfig()
}

// open loads configuration, builds the logger and opens the database.
func (o *rootOptions) open() (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger.With("sqlite")})
	if err != nil {
		appLogger.Error(context.Background(), err, "Failed to initialize database repository")
		return nil, fmt.Errorf("failed to initialize database repository: %w", err)
	}
	return &env{cfg: cfg, logger: appLogger, repo: repo}, nil
}

func (e *env) close() {
	if err := e.repo.Close(); err != nil {
		e.logger.Error(context.Background(), err, "Error closing database repository")
	}
}

func (e *env) exchange() (*binanceclient.Client, error) {
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:         e.cfg.APIKey,
		SecretKey:      e.cfg.SecretKey,
		UseTestnet:     e.cfg.IsTestnet,
		QuoteAsset:     e.cfg.QuoteAsset,
		RequestTimeout: e.cfg.RequestTimeout,
		Logger:         e.logger.With("binance"),
	})
	if err != nil {
		e.logger.Error(context.Background(), err, "Failed to initialize Binance client")
		return nil, fmt.Errorf("failed to initialize Binance client: %w", err)
	}
	return client, nil
}
