package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-table-orders/internal/catalog"
	"github.com/ariefcatur/go-table-orders/internal/config"
	"github.com/ariefcatur/go-table-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-table-orders/internal/kafka"
	"github.com/ariefcatur/go-table-orders/internal/logger"
	"github.com/ariefcatur/go-table-orders/internal/postgres"
	"github.com/ariefcatur/go-table-orders/internal/printing"
	"github.com/ariefcatur/go-table-orders/internal/realtime"
	"github.com/ariefcatur/go-table-orders/internal/redisx"
	"github.com/ariefcatur/go-table-orders/internal/tables"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	lg, err := logger.New(cfg.Log.Mode, cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("api exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, lg *zap.Logger) error {
	// Catalog
	src, closeSrc, err := catalogSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSrc()
	menu, err := catalog.New(nil)
	if err != nil {
		return err
	}
	n, err := menu.Reload(ctx, src)
	if err != nil {
		return err
	}
	lg.Info("catalog loaded", zap.String("source", cfg.Catalog.Source), zap.Int("products", n))

	g, gctx := errgroup.WithContext(ctx)

	// Service, viewers and the optional Redis mirror
	hub := realtime.NewHub(cfg.Realtime.ViewerBuffer, lg.Named("realtime"))
	opts := []tables.Option{
		tables.WithLogger(lg.Named("tables")),
		tables.WithCheckout(tables.Checkout{
			TaxPercent:     cfg.Checkout.TaxPercent,
			ServicePercent: cfg.Checkout.ServicePercent,
			RoundUnit:      cfg.Checkout.RoundUnit,
		}),
	}
	if cfg.Redis.Addr != "" {
		rdb := redisx.New(cfg.Redis.Addr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			return err
		}
		mirror := redisx.NewSnapshotMirror(rdb, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotChannel, lg.Named("mirror"))
		mirror.Start(gctx)
		defer mirror.WaitClosed()
		opts = append(opts, tables.WithMirror(mirror))
		lg.Info("snapshot mirror enabled", zap.String("redis", cfg.Redis.Addr))
	}
	svc := tables.NewService(menu, hub, opts...)

	// Printer
	printer, closePrinter := newPrinter(gctx, cfg, lg)
	defer closePrinter()
	desk := printing.NewDesk(svc, printer, tables.Checkout{
		TaxPercent:     cfg.Checkout.TaxPercent,
		ServicePercent: cfg.Checkout.ServicePercent,
		RoundUnit:      cfg.Checkout.RoundUnit,
	}, lg.Named("printing"))

	// HTTP
	router := httpx.NewRouter(cfg.Server.CORSOrigins)
	api := &httpx.API{
		Tables:  svc,
		Catalog: menu,
		Source:  src,
		Desk:    desk,
		Log:     lg.Named("http"),
		Timeout: cfg.Server.RequestTimeout,
	}
	api.Register(router)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	g.Go(func() error {
		lg.Info("HTTP listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func catalogSource(ctx context.Context, cfg config.Config) (catalog.Source, func(), error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourcePostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return &catalog.PostgresSource{DB: db}, db.Close, nil
	default:
		return catalog.FileSource{Path: cfg.Catalog.MenuPath}, func() {}, nil
	}
}

func newPrinter(ctx context.Context, cfg config.Config, lg *zap.Logger) (printing.Printer, func()) {
	switch cfg.Print.Mode {
	case config.PrintModeQueue:
		prod := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Print.Topic, 256, lg.Named("kafka"))
		prod.Start(ctx)
		lg.Info("printing via queue", zap.String("topic", cfg.Print.Topic), zap.Strings("brokers", cfg.Kafka.Brokers))
		return &printing.QueuePrinter{
				Producer: prod,
				Service:  cfg.Server.ServiceName,
				Known:    cfg.Print.Printers,
				Log:      lg.Named("printing"),
			}, func() {
				prod.Close()
				prod.WaitClosed()
			}
	case config.PrintModeCommand:
		return &printing.CommandPrinter{
			Command:  cfg.Print.Command,
			Args:     cfg.Print.Args,
			Printers: cfg.Print.Printers,
			Log:      lg.Named("printing"),
		}, func() {}
	default:
		return printing.LogPrinter{Log: lg.Named("printing")}, func() {}
	}
}
