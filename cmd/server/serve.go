package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/config"
	"github.com/iliyamo/inventory-api/internal/database"
	"github.com/iliyamo/inventory-api/internal/handler"
	"github.com/iliyamo/inventory-api/internal/queue"
	"github.com/iliyamo/inventory-api/internal/repository"
	"github.com/iliyamo/inventory-api/internal/router"
	"github.com/iliyamo/inventory-api/internal/service"
	"github.com/iliyamo/inventory-api/internal/utils"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serveCommand,
	}
	cobraflags.RegisterMap(cmd, rootFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, logger, 256)
		go pub.Run(ctx)
		events = pub
		logger.Info("auth events enabled", zap.String("queue", queue.AuthEventsQueue))
	}

	var limiter redis.Scripter
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	switch {
	case err != nil:
		logger.Warn("redis unavailable; rate limiting disabled", zap.Error(err))
	case rdb != nil:
		defer rdb.Close()
		limiter = rdb
	}

	tokens := utils.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTTL, cfg.RefreshTTL)
	svc := service.NewAuthService(users, utils.NewBcryptHasher(cfg.BcryptCost), tokens, events, logger)

	deps := router.Deps{
		Logger: logger,
		Auth: handler.NewAuthHandler(svc, handler.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		}),
		Authn:         svc,
		Redis:         limiter,
		RateLimit:     config.LoadRateLimitConfig(),
		AuthRateLimit: config.LoadAuthRateLimitConfig(),
		CORSOrigin:    cfg.CORSOrigin,
	}
	deps.TrustedProxies = cfg.TrustedProxies
	if db != nil {
		deps.DB = db
	}
	e := router.New(deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ":"+cfg.Port), zap.String("env", cfg.Env), zap.String("store", cfg.StoreBackend))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore returns the credential store selected by STORE_BACKEND. The
// *sql.DB is nil for the memory backend.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (service.UserStore, *sql.DB, error) {
	if cfg.StoreBackend == config.StoreMemory {
		logger.Warn("using in-memory user store; data is lost on restart")
		return repository.NewMemoryUserRepo(), nil, nil
	}
	db, err := database.Open(ctx, database.OptionsFrom(cfg))
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}
	return repository.NewUserRepo(db), db, nil
}
