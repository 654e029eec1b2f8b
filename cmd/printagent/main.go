package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-table-orders/internal/config"
	kafkax "github.com/ariefcatur/go-table-orders/internal/kafka"
	"github.com/ariefcatur/go-table-orders/internal/logger"
	"github.com/ariefcatur/go-table-orders/internal/printing"
	"github.com/ariefcatur/go-table-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// agent turns queued print jobs into printer commands. With Redis configured,
// a job redelivered after a crash is printed once.
type agent struct {
	printer printing.Printer
	redis   *redis.Client
	name    string
	log     *zap.Logger
}

func (a *agent) handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		a.log.Warn("skipping undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != kafkax.EventPrintRequested {
		return nil
	}
	job, err := kafkax.UnwrapPayload[kafkax.PrintRequestedPayload](env.Payload)
	if err != nil {
		a.log.Warn("skipping bad print job", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	key := fmt.Sprintf(redisx.KeyDedup, a.name, env.EventID)
	if a.redis != nil {
		if done, _ := redisx.Exists(ctx, a.redis, key); done {
			a.log.Info("duplicate print job", zap.String("event_id", env.EventID))
			return nil
		}
	}

	if err := a.printer.Print(ctx, job.Text, job.Target); err != nil {
		return fmt.Errorf("print %s for table %s: %w", job.Kind, job.TableID, err)
	}
	if a.redis != nil {
		if _, err := redisx.Claim(ctx, a.redis, key, redisx.TTLDedup); err != nil {
			a.log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	a.log.Info("print job done",
		zap.String("event_id", env.EventID),
		zap.String("table", job.TableID),
		zap.String("target", job.Target),
		zap.String("kind", job.Kind))
	return nil
}

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

	a := &agent{
		printer: &printing.CommandPrinter{
			Command:  cfg.Print.Command,
			Args:     cfg.Print.Args,
			Printers: cfg.Print.Printers,
			Log:      lg.Named("printer"),
		},
		name: cfg.Server.ServiceName + "-printagent",
		log:  lg,
	}
	if cfg.Redis.Addr != "" {
		rdb := redisx.New(cfg.Redis.Addr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			lg.Fatal("redis", zap.Error(err))
		}
		a.redis = rdb
	}

	cons := kafkax.NewConsumer(cfg.Kafka.Brokers, cfg.Print.AgentGroup, cfg.Print.Topic, cfg.Print.AgentWorkers, lg.Named("kafka"))
	lg.Info("print agent started",
		zap.String("group", cfg.Print.AgentGroup),
		zap.String("topic", cfg.Print.Topic),
		zap.Int("workers", cfg.Print.AgentWorkers))
	if err := cons.Start(ctx, a.handle); err != nil {
		lg.Fatal("consumer exit", zap.Error(err))
	}
	lg.Info("print agent stopped")
}
