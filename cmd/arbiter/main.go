package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arbiterhq/arbiter/internal/app"
	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/permissions"
	"github.com/arbiterhq/arbiter/internal/platform/db"
	"github.com/arbiterhq/arbiter/internal/posts"
	"github.com/arbiterhq/arbiter/internal/rbac"
	"github.com/arbiterhq/arbiter/internal/roles"
	"github.com/arbiterhq/arbiter/internal/users"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(auth.NewRepository(pool), tokens)
	authHandler := auth.NewHandler(logger, authService, cfg.IsProduction())
	authMW := auth.Middleware{Service: authService, Logger: logger}
	rbacMW := rbac.Middleware{Logger: logger}

	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(pool)), authHandler, authMW, rbacMW)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool)))
	permissionsHandler := permissions.NewHandler(logger, permissions.NewService(permissions.NewRepository(pool)))
	postsHandler := posts.NewHandler(logger, posts.NewService(posts.NewRepository(pool)), authMW, rbacMW)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMW,
		RBACMiddleware:     rbacMW,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		PostsHandler:       postsHandler,
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
