package main

import (
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/config"
	"github.com/iliyamo/inventory-api/internal/logging"
)

const envFileFlag = "env-file"

var rootFlags = map[string]cobraflags.Flag{
	envFileFlag: &cobraflags.StringFlag{
		Name:  envFileFlag,
		Value: ".env",
		Usage: "dotenv file loaded before reading the environment (missing file is ignored)",
	},
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "inventory-api",
		Short:         "Inventory API authentication and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCommand, // serve is the default
	}
	cobraflags.RegisterMap(root, rootFlags)

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newConsumeCommand())
	return root
}

// loadEnv loads the dotenv file named by --env-file.
func loadEnv() error {
	return config.LoadEnvFile(rootFlags[envFileFlag].GetString())
}

// setup loads configuration and builds the logger.
func setup() (config.Config, *zap.Logger, error) {
	if err := loadEnv(); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
