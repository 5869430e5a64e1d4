// Package server initializes and runs the LockTalk relay: it wires the user
// directory, auth gateway, broadcast registry, and the two TCP listeners
// (chat and auth), and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/logging"
	"github.com/locktalk/locktalk/internal/server/auth"
	"github.com/locktalk/locktalk/internal/server/authapi"
	"github.com/locktalk/locktalk/internal/server/chat"
	"github.com/locktalk/locktalk/internal/server/config"
	"github.com/locktalk/locktalk/internal/server/directory"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	chatServer *chat.Server
	authServer *authapi.Server
	closeRepo  func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	// A missing JWT secret gets an ephemeral one so a dev instance still
	// runs, at the cost of invalidating tokens on restart. The integrity
	// secret is shared with the clients and has no usable fallback.
	if cfg.JWTSecret == "" {
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("jwt secret generation error: %w", err)
		}
		cfg.JWTSecret = secret
		logger.Warn(ctx, "no JWT secret configured; generated an ephemeral one")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC secret is not configured")
	}

	var repo directory.Repository
	closeRepo := func() error { return nil }

	if cfg.DatabaseDSN != "" {
		pg, err := directory.NewPostgresRepository(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("db migration error: %w", err)
		}
		repo = pg
		closeRepo = pg.Close
	} else {
		logger.Warn(ctx, "no database DSN configured; user directory is in-memory")
		repo = directory.NewInMemoryRepository()
	}

	gateway := auth.NewGateway(repo, []byte(cfg.JWTSecret), cfg.TokenTTL, logger)
	registry := chat.NewRegistry(cfg.MaxClients, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		chatServer: chat.NewServer(cfg.ChatAddr, registry, gateway, []byte(cfg.HMACSecret), logger),
		authServer: authapi.NewServer(cfg.AuthAddr, gateway, logger),
		closeRepo:  closeRepo,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.chatServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.authServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.closeRepo(); err != nil {
		app.logger.Error(ctx, "error closing user directory", "error", err)
	}
}
