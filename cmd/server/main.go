package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/database"
	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/logging"
	"github.com/iliyamo/event-ticket-reservation/internal/metrics"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/repository/memory"
	"github.com/iliyamo/event-ticket-reservation/internal/router"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file read before the environment")
	storage := pflag.String("storage", "", "storage driver: memory, mysql or postgres (overrides STORAGE_DRIVER)")
	port := pflag.String("port", "", "HTTP port (overrides APP_PORT)")
	migrate := pflag.Bool("migrate", false, "create missing SQL tables on start")
	consumer := pflag.Bool("consumer", true, "run the audit log consumer when the broker is enabled")
	pflag.Parse()

	cfg := config.Load(*envFile)
	if *storage != "" {
		cfg.Storage = *storage
	}
	if *port != "" {
		cfg.Port = *port
	}
	log := logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *migrate, *consumer, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, migrate, runConsumer bool, log *logrus.Entry) error {
	store, db, err := openStore(ctx, cfg, migrate, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.Broker.Enabled {
		publisher = queue.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue, log)
	}

	var auditConsumer *queue.Consumer
	if cfg.Broker.Enabled && runConsumer {
		audit, f, err := queue.OpenAuditLog(cfg.AuditLogPath)
		if err != nil {
			return err
		}
		defer f.Close()
		auditConsumer = queue.NewConsumer(cfg.Broker.URL, cfg.Broker.Queue, audit, log)
	}

	e := router.Build(router.Deps{
		Config:    cfg,
		Store:     store,
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
		Metrics:   metrics.New(),
		Log:       log,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.Storage}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if auditConsumer != nil {
		g.Go(func() error { return auditConsumer.Run(ctx) })
	}

	return g.Wait()
}

// openStore returns the in-memory store or a SQL store with its pool.  The
// pool is nil for memory storage.
func openStore(ctx context.Context, cfg config.Config, migrate bool, log *logrus.Entry) (repository.Store, pinger, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil, nil
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("schema migrated")
	}
	return repository.NewSQLStore(db), db, nil
}

type pinger interface {
	handler.Pinger
	Close() error
}
