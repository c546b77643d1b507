package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"

	"github.com/alexanderramin/routinebuzz/internal/cli"
	"github.com/alexanderramin/routinebuzz/internal/config"
	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/alexanderramin/routinebuzz/internal/importer"
	"github.com/alexanderramin/routinebuzz/internal/realtime"
	"github.com/alexanderramin/routinebuzz/internal/remote"
	"github.com/alexanderramin/routinebuzz/internal/repository"
	"github.com/alexanderramin/routinebuzz/internal/server"
	"github.com/alexanderramin/routinebuzz/internal/service"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

const closeTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	var redisClient *redis.Client
	if cfg.RealtimeEnabled() {
		redisClient, err = realtime.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			// Sharing still works without live updates.
			logger.Warn("realtime_unavailable", "addr", cfg.RedisAddr, "error", err.Error())
		} else {
			defer redisClient.Close()
		}
	}

	client := remote.NewClient(cfg.Remote(), remote.NewLogObserver(logger))

	machineOpts := []sharesync.Option{
		sharesync.WithPushDelay(cfg.PushDelay()),
		sharesync.WithRefreshDelay(cfg.RefreshDelay()),
	}
	if redisClient != nil {
		machineOpts = append(machineOpts, sharesync.WithNotifier(realtime.NewRedisNotifier(redisClient, logger)))
	}

	observer := service.NewLogUseCaseObserver(logger)

	routineSvc, err := service.NewRoutineService(ctx,
		repository.NewSQLiteKVRepo(database),
		client,
		service.NewRemoteStore(client),
		service.RoutineOptions{
			PublicURL: cfg.ShareBaseURL(),
			Logger:    logger,
			Machine:   machineOpts,
		},
		observer,
	)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := routineSvc.Close(closeCtx); err != nil {
			logger.Warn("routine_close_failed", "error", err.Error())
		}
	}()

	app := &cli.App{
		Catalog:  service.NewCatalogService(client),
		Routine:  routineSvc,
		Location: cfg.Location(),
		ServeDefaults: cli.ServeOptions{
			Addr:        cfg.ServerAddr,
			CatalogPath: cfg.CatalogPath,
		},
		Serve: func(ctx context.Context, opts cli.ServeOptions) error {
			return serve(ctx, cfg, opts, redisClient, logger)
		},
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

func serve(ctx context.Context, cfg config.Config, opts cli.ServeOptions, redisClient *redis.Client, logger *slog.Logger) error {
	conn, err := db.OpenDB(cfg.ServerDBPath)
	if err != nil {
		return fmt.Errorf("opening server database: %w", err)
	}
	defer conn.Close()

	if opts.CatalogPath != "" {
		cat, err := importer.LoadCatalog(opts.CatalogPath)
		if err != nil {
			return err
		}
		n, err := importer.ImportCatalog(ctx, db.NewSQLiteUnitOfWork(conn), cat)
		if err != nil {
			return err
		}
		logger.Info("catalog_imported", "path", opts.CatalogPath, "semester", cat.Semester, "sections", n)
	}

	var publisher realtime.Publisher = realtime.NopPublisher{}
	if redisClient != nil {
		publisher = realtime.NewRedisPublisher(redisClient)
	}

	srv := server.New(conn, server.Config{Addr: opts.Addr, RateLimit: cfg.RateLimit},
		server.WithLogger(logger),
		server.WithPublisher(publisher),
	)
	return srv.ListenAndServe(ctx)
}
