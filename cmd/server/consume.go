package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/config"
	"github.com/iliyamo/inventory-api/internal/logging"
	"github.com/iliyamo/inventory-api/internal/queue"
)

const logDirFlag = "log-dir"

var consumeFlags = map[string]cobraflags.Flag{
	logDirFlag: &cobraflags.StringFlag{
		Name:  logDirFlag,
		Value: "logs",
		Usage: "directory auth.log is written to",
	},
}

func newConsumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume-events",
		Short: "Append auth events from RabbitMQ to <log-dir>/auth.log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(); err != nil {
				return err
			}
			// Only the broker URL is needed here, not the full API config.
			logger, err := logging.New(config.EnvName())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := &queue.Consumer{
				URL:    config.RabbitURL(),
				LogDir: consumeFlags[logDirFlag].GetString(),
				Log:    logger,
			}
			logger.Info("auth consumer started", zap.String("queue", queue.AuthEventsQueue), zap.String("log_dir", c.LogDir))
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, rootFlags)
	cobraflags.RegisterMap(cmd, consumeFlags)
	return cmd
}
