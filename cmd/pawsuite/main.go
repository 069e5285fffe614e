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
	"golang.org/x/sync/errgroup"

	"github.com/pawsuite/pawsuite/internal/accounting/accounts"
	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/accounting/mappings"
	"github.com/pawsuite/pawsuite/internal/accounting/periods"
	"github.com/pawsuite/pawsuite/internal/app"
	"github.com/pawsuite/pawsuite/internal/clinic"
	"github.com/pawsuite/pawsuite/internal/hotel"
	"github.com/pawsuite/pawsuite/internal/inventory"
	"github.com/pawsuite/pawsuite/internal/masterdata/products"
	"github.com/pawsuite/pawsuite/internal/platform/cache"
	"github.com/pawsuite/pawsuite/internal/platform/db"
	"github.com/pawsuite/pawsuite/internal/purchasing"
	"github.com/pawsuite/pawsuite/internal/sales"
	"github.com/pawsuite/pawsuite/internal/shared"
	"github.com/pawsuite/pawsuite/jobs"
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
		logger.Warn("redis unavailable, account cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	audit := shared.NewAuditRecorder(pool)

	productRepo := products.NewRepository(pool)

	accountRepo := accounts.NewRepository(pool, redisClient)
	accountService := accounts.NewService(accountRepo)
	periodRepo := periods.NewRepository(pool)
	resolver := mappings.NewResolver(mappings.NewRepository(pool))

	journalRepo := journals.NewRepository(pool)
	journalService := journals.NewService(journalRepo, accountService, periodRepo, audit, logger)
	poster := journals.NewPoster(journalService, resolver)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, productRepo, audit, logger)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, productRepo, inventoryService, poster, audit, logger)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(purchasingRepo, productRepo, inventoryService, poster, audit, logger)

	clinicRepo := clinic.NewRepository(pool)
	clinicService := clinic.NewService(clinicRepo, productRepo, inventoryService, poster, audit, logger)

	hotelRepo := hotel.NewRepository(pool)
	hotelService := hotel.NewService(hotelRepo, productRepo, inventoryService, poster, audit, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountsHandler:   accounts.NewHandler(accountService, logger),
		JournalsHandler:   journals.NewHandler(journalService, logger),
		InventoryHandler:  inventory.NewHandler(inventoryService, inventoryRepo, productRepo, poster, logger),
		SalesHandler:      sales.NewHandler(salesService, logger),
		PurchasingHandler: purchasing.NewHandler(purchasingService, logger),
		ClinicHandler:     clinic.NewHandler(clinicService, logger),
		HotelHandler:      hotel.NewHandler(hotelService, logger),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
