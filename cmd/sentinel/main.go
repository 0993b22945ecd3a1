package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentinel-iam/sentinel/internal/app"
	"github.com/sentinel-iam/sentinel/internal/audit"
	"github.com/sentinel-iam/sentinel/internal/auth"
	"github.com/sentinel-iam/sentinel/internal/featuregate"
	"github.com/sentinel-iam/sentinel/internal/observability"
	"github.com/sentinel-iam/sentinel/internal/platform/cache"
	"github.com/sentinel-iam/sentinel/internal/platform/db"
	"github.com/sentinel-iam/sentinel/internal/rbac"
	"github.com/sentinel-iam/sentinel/internal/token"
	"github.com/sentinel-iam/sentinel/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, login throttling disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	recorder := audit.NewRecorder(pool, logger)
	catalog := rbac.NewCatalog()
	userRepo := users.NewRepository(pool)
	engine := rbac.NewEngine(catalog, userRepo)

	codec := token.NewCodec(cfg.JWTSecret, cfg.JWTTTL, nil)
	verifier := auth.NewVerifier(cfg.BcryptCost)
	throttle := auth.NewThrottle(redisClient, cfg.LoginAttemptLimit, cfg.LoginAttemptWindow)

	userService := users.NewService(userRepo, catalog, engine, verifier, recorder)
	authService := auth.NewService(userRepo, verifier, recorder)

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Codec: codec, Engine: engine, Logger: logger, Observer: metrics}
	gate := featuregate.New(cfg.FeatureUserAPI, "/users", "/roles")

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Gate:           gate,
		RBACMiddleware: rbacMiddleware,
		AuthHandler:    auth.NewHandler(logger, authService, codec, throttle, userService, metrics),
		UsersHandler:   users.NewHandler(logger, userService, rbacMiddleware),
		RolesHandler:   rbac.NewRolesHandler(catalog, rbacMiddleware),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
