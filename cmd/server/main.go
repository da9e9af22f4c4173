// Command server runs the gearcheck API: daily equipment-check submissions,
// the strike ledger, the audit trail, and the notification outbox worker.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gearcheck/internal/audit"
	audithandler "gearcheck/internal/audit/handler"
	"gearcheck/internal/calendar"
	calendarhandler "gearcheck/internal/calendar/handler"
	"gearcheck/internal/catalog"
	cataloghandler "gearcheck/internal/catalog/handler"
	"gearcheck/internal/check"
	checkhandler "gearcheck/internal/check/handler"
	checkservice "gearcheck/internal/check/service"
	"gearcheck/internal/directory"
	"gearcheck/internal/jwttoken"
	"gearcheck/internal/notify"
	notifyhandler "gearcheck/internal/notify/handler"
	"gearcheck/internal/platform/config"
	"gearcheck/internal/platform/httpserver"
	"gearcheck/internal/platform/logger"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/platform/postgres"
	"gearcheck/internal/platform/redis"
	"gearcheck/internal/strikes"
	strikeshandler "gearcheck/internal/strikes/handler"
	httptransport "gearcheck/internal/transport/http"
)

// stores groups the per-area persistence behind one wiring decision: all
// postgres when DATABASE_URL is set, all in-memory otherwise.
type stores struct {
	directory directory.Store
	catalog   catalog.Store
	checks    check.Store
	counters  strikes.Store
	outbox    notify.Store
	audits    audit.Store
	tx        checkservice.Tx
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st stores
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres setup failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		st = postgresStores(db)
		log.Info("using postgres storage")
	} else {
		st = memoryStores()
		log.Info("using in-memory storage, set DATABASE_URL for persistence")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		st.catalog = catalog.NewCachedStore(st.catalog, redisClient, cfg.Redis.CatalogTTL)
		log.Info("catalog cache enabled")
	}

	jwtService := jwttoken.New(cfg.JWTSigningKey, "gearcheck")
	ledger := strikes.NewLedger(st.counters, st.outbox)
	coordinator := checkservice.NewCoordinator(
		st.tx,
		st.checks,
		st.directory,
		check.NewValidator(st.directory, st.catalog),
		ledger,
		st.audits,
		cfg.Location(),
		m,
		log,
	)
	auditService := audit.NewService(st.audits)
	calendarService := calendar.NewService(st.directory, st.checks, st.audits)
	strikeService := strikes.NewService(st.counters, st.directory, m, log)

	router := httptransport.NewRouter(db,
		checkhandler.New(coordinator, log, m, jwtService),
		audithandler.New(auditService, log, m, jwtService),
		strikeshandler.New(strikeService, log, m, jwtService, cfg.AdminKeyHash),
		cataloghandler.New(st.catalog, st.directory, log, m, jwtService),
		calendarhandler.New(calendarService, log, m, jwtService),
		notifyhandler.New(st.outbox, log, m, jwtService),
	)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka setup failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		worker := notify.NewWorker(st.outbox, publisher, cfg.Kafka.PollInterval, log)
		g.Go(func() error {
			log.Info("notification worker started", "topic", cfg.Kafka.Topic)
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, notifications stay queued in the outbox")
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func memoryStores() stores {
	return stores{
		directory: directory.NewInMemoryStore(),
		catalog:   catalog.NewInMemoryStore(),
		checks:    check.NewInMemoryStore(),
		counters:  strikes.NewInMemoryStore(),
		outbox:    notify.NewInMemoryStore(),
		audits:    audit.NewInMemoryStore(),
		tx:        checkservice.NewShardedTx(),
	}
}

func postgresStores(db *sql.DB) stores {
	return stores{
		directory: directory.NewPostgresStore(db),
		catalog:   catalog.NewPostgresStore(db),
		checks:    check.NewPostgresStore(db),
		counters:  strikes.NewPostgresStore(db),
		outbox:    notify.NewPostgresStore(db),
		audits:    audit.NewPostgresStore(db),
		tx:        newCheckPostgresTx(db),
	}
}
