package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/smart-zaiko/internal/config"
	"github.com/iliyamo/smart-zaiko/internal/database"
	"github.com/iliyamo/smart-zaiko/internal/handler"
	"github.com/iliyamo/smart-zaiko/internal/logger"
	"github.com/iliyamo/smart-zaiko/internal/middleware"
	"github.com/iliyamo/smart-zaiko/internal/queue"
	"github.com/iliyamo/smart-zaiko/internal/repository"
	"github.com/iliyamo/smart-zaiko/internal/router"
	"github.com/iliyamo/smart-zaiko/internal/service"
)

var (
	autoMigrate  bool
	withConsumer bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Apply pending migrations before serving")
	serveCmd.Flags().BoolVar(&withConsumer, "consumer", true, "Run the sale event ledger consumer in-process")
}

func runServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := config.Load()
	log := logger.Must(logger.Config{Development: cfg.IsDev(), Level: cfg.LogLevel})
	defer func() { _ = log.Sync() }()

	// Money is rendered as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	if autoMigrate {
		mctx, mcancel := context.WithTimeout(ctx, time.Minute)
		applied, err := database.Migrate(mctx, db)
		mcancel()
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.Info("migrations applied", zap.Strings("versions", applied))
		}
	}

	rdb, err := config.ConnectRedis(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable; response cache and rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	var wg sync.WaitGroup
	var events service.EventPublisher = queue.NopPublisher{}
	rabbit := config.LoadRabbitConfig()
	if rabbit.Enabled {
		pub := queue.NewPublisher(rabbit.URL, rabbit.Queue, log)
		defer pub.Close()
		events = pub

		if withConsumer {
			consumer := &queue.Consumer{
				URL:   rabbit.URL,
				Queue: rabbit.Queue,
				Ledger: &queue.Ledger{
					Dir:      rabbit.LedgerDir,
					LowStock: rabbit.LowStockThreshold,
					Log:      log,
				},
				Log: log,
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("sale event consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	// repositories
	users := repository.NewUserRepo(db)
	categories := repository.NewCategoryRepo(db)
	attributes := repository.NewAttributeRepo(db)
	products := repository.NewProductRepo(db)
	sales := repository.NewSaleRepo(db)
	stock := repository.NewStockRepo(db)

	// services
	saleSvc := service.NewSaleService(stock, sales, events, log)
	reportSvc := service.NewReportService(sales, products, cfg.ReportLocation)
	inventorySvc := service.NewInventoryService(stock, log)
	catalogSvc := service.NewCatalogService(categories, attributes, products, stock, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, log), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterDashboard(e, router.Dashboard{
		Sales:     handler.NewSaleHandler(saleSvc, log),
		Reports:   handler.NewReportHandler(reportSvc, log),
		Inventory: handler.NewInventoryHandler(inventorySvc, log),
		Catalog:   handler.NewCatalogHandler(catalogSvc, log),
	}, cfg.JWTSecret, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	cancel()
	sctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
	return serveErr
}
