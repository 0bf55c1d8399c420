// Package cli wires configuration, logging and the storage backend into the
// balansim commands.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"balansim/internal/config"
	"balansim/internal/log"
)

// app carries what every command needs once the root pre-run has finished.
type app struct {
	cfg    *config.Config
	logger *log.Logger

	envFile    string
	configFile string
	logLevel   string
	backend    string
}

// NewRootCommand builds the balansim command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "balansim",
		Short:         "Personal income and expense ledger",
		Long:          `balansim keeps a single ledger of income and expense transactions, reports on it and serves it over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "optional TOML config file; environment variables override it")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "data backend (sqlite, file, memory), overrides DATA_BACKEND")

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newWorkerCommand(a))
	root.AddCommand(newReportCommand(a))
	root.AddCommand(newAdviceCommand(a))
	root.AddCommand(newListCommand(a))
	root.AddCommand(newAddCommand(a))
	root.AddCommand(newDeleteCommand(a))
	root.AddCommand(newBalanceCommand(a))
	root.AddCommand(newCategoryCommand(a))
	return root
}

// Execute runs the command tree with ctx and returns the first error.
func Execute(ctx context.Context, version string, args []string) error {
	root := NewRootCommand(version)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) init(cmd *cobra.Command) error {
	// The dotenv file is optional outside local development.
	_ = godotenv.Load(a.envFile)

	cfg := config.Load()
	if a.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(a.configFile); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.backend != "" {
		cfg.DataBackend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	log.SetDefault(a.logger)
	a.logger.Debug("Configuration loaded", log.FieldBackend, cfg.DataBackend, "command", cmd.Name())
	return nil
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("usage: "+format, args...)
}
