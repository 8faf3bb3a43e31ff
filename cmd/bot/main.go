// Command bot runs the verification core with its admin API. The chat
// transport is an external collaborator: deployments wire a platform adapter
// in place of the logging messenger and in-memory role registry used here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"vouch/internal/admin"
	"vouch/internal/audit"
	"vouch/internal/eligibility"
	"vouch/internal/identity/store"
	"vouch/internal/mailer"
	"vouch/internal/platform/chat"
	"vouch/internal/platform/config"
	"vouch/internal/platform/httpserver"
	"vouch/internal/platform/logger"
	"vouch/internal/platform/metrics"
	platformredis "vouch/internal/platform/redis"
	"vouch/internal/roles"
	httptransport "vouch/internal/transport/http"
	"vouch/internal/verify"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("bot exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identityStore, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	checker, err := buildChecker(ctx, cfg, rdb)
	if err != nil {
		return err
	}

	publisher, closeAudit, err := buildAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	var sender verify.EmailSender
	if cfg.Mail.APIKey != "" {
		sender = mailer.NewClient(cfg.Mail)
	} else {
		log.Warn("no mail API key configured, logging emails instead of sending")
		sender = mailer.LogSender{Logger: log}
	}

	m := metrics.New()
	reconciler := roles.NewReconciler(roles.NewInMemoryRegistry())
	dispatcher := verify.NewDispatcher(chat.LogMessenger{Logger: log}, sender, reconciler,
		verify.WithDispatcherAudit(publisher),
		verify.WithDispatcherMetrics(m),
		verify.WithDispatcherLogger(log),
		verify.WithConcurrency(cfg.DispatchLimit),
	)
	defer dispatcher.Close()

	verifySvc := verify.NewService(identityStore, checker,
		verify.WithAudit(publisher),
		verify.WithMetrics(m),
		verify.WithLogger(log),
	)
	adminSvc := admin.NewService(identityStore, reconciler, publisher, log)

	handler := httptransport.NewHandler(adminSvc, verifySvc, dispatcher, log)
	srv := httpserver.New(cfg.HTTPAddr, httptransport.NewRouter(handler, cfg.AdminJWTKey))

	errc := make(chan error, 1)
	go func() {
		log.Info("admin API listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewInMemory(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

func buildChecker(ctx context.Context, cfg config.Config, rdb *redis.Client) (eligibility.Checker, error) {
	if cfg.EligibilityPolicy == config.PolicyDomain {
		return eligibility.NewDomainChecker(), nil
	}
	roster, err := eligibility.LoadRosterCSV(cfg.RosterPath)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return roster, nil
	}
	shared := eligibility.NewRedisRoster(rdb, cfg.RosterRedisKey)
	if err := shared.Seed(ctx, roster.Emails()); err != nil {
		return nil, err
	}
	return shared, nil
}

func buildAudit(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafka(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return nil, nil, err
		}
		return kafka, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafka.Close(closeCtx); err != nil {
				log.Error("audit close failed", "error", err)
			}
		}, nil
	}

	publisher := audit.NewChannelPublisher(256, log)
	worker := audit.NewWorker(audit.NewMemoryStore(), publisher.Inbox())
	workerCtx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()
	return publisher, cancel, nil
}
