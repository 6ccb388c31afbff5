package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aegis-admin/aegis/internal/app"
	"github.com/aegis-admin/aegis/internal/auth"
	"github.com/aegis-admin/aegis/internal/captcha"
	"github.com/aegis-admin/aegis/internal/platform/cache"
	"github.com/aegis-admin/aegis/internal/platform/db"
	"github.com/aegis-admin/aegis/internal/rbac"
	"github.com/aegis-admin/aegis/internal/roles"
	"github.com/aegis-admin/aegis/internal/users"
	"github.com/aegis-admin/aegis/jobs"
)

func main() {
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens, err := auth.NewTokenManager([]byte(cfg.JWTPrivateKey), []byte(cfg.JWTPublicKey), cfg.JWTExpiresIn)
	if err != nil {
		logger.Error("parse jwt keys", slog.Any("error", err))
		os.Exit(1)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	userService := users.NewService(users.NewRepository(pool), cfg.DefaultAdminUserName)
	captchaService := captcha.NewService(redisClient, nil, cfg.CaptchaExpiresIn)
	authService := auth.NewService(logger, userService, captchaService, tokens, redisClient)
	guard := auth.NewGuard(logger, tokens, redisClient)

	permissionCache := rbac.NewCache(redisClient, cfg.JWTExpiresIn)
	resolver := rbac.NewService(logger, rbac.NewRepository(pool), userService, permissionCache, cfg.DefaultSuperPermission)

	invalidator := jobs.NewAsynqInvalidator(asynqClient)
	roleService := roles.NewService(logger, roles.NewRepository(pool), invalidator, cfg.DefaultRoleName)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  auth.NewHandler(logger, captchaService, authService, resolver),
		RolesHandler: roles.NewHandler(logger, roleService),
		Guard:        guard,
		RBAC:         rbac.Middleware{Logger: logger, Service: resolver},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
