// Package server initializes and runs the posts application.
// It opens the database, applies migrations, seeds the posts table on first start,
// and runs the REST API next to a gRPC health endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/config"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postkeeper/internal/server/rest"
	"github.com/dmitrijs2005/postkeeper/internal/server/seed"
	"github.com/dmitrijs2005/postkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/postkeeper/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	manager     repomanager.RepositoryManager
	postService *services.PostService
	seeder      *seed.Loader
}

// NewApp builds the logger, connects to the database and runs migrations.
// Any failure here aborts startup.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	src, err := seed.NewSource(c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed source error: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		manager:     m,
		postService: services.NewPostService(db, m, logger),
		seeder:      seed.NewLoader(db, m, src, logger),
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc, hs *gs.HealthServer) error {
	err := hs.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
	return err
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, hs *gs.HealthServer) error {
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.postService, app.config.ShutdownTimeout)

	err := s.Run(ctx, func() { hs.SetServing(true) })
	hs.SetServing(false)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
	return err
}

// Run seeds the database and serves until ctx is cancelled or a signal arrives.
// It returns the gRPC or HTTP server error that stopped the application.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	hs := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger)

	var (
		wg      sync.WaitGroup
		grpcErr error
		httpErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.startGRPCServer(ctx, cancelFunc, hs); err != nil {
			grpcErr = fmt.Errorf("grpc server error: %w", err)
		}
	}()

	n, err := app.seeder.Run(ctx)
	if err != nil {
		cancelFunc()
		wg.Wait()
		if grpcErr != nil {
			return grpcErr
		}
		return fmt.Errorf("seed error: %w", err)
	}
	app.logger.Info(ctx, "seed finished", "loaded", n)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.startHTTPServer(ctx, cancelFunc, hs); err != nil && !errors.Is(err, context.Canceled) {
			httpErr = fmt.Errorf("http server error: %w", err)
		}
	}()

	wg.Wait()

	if err := errors.Join(grpcErr, httpErr); err != nil {
		return err
	}

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
