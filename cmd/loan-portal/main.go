package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cashflow-loans/internal/application"
	"cashflow-loans/internal/common/aws"
	"cashflow-loans/internal/common/camunda"
	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/crm"
	"cashflow-loans/internal/common/database"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/observability"
	"cashflow-loans/internal/common/ratelimit"
	"cashflow-loans/internal/fallback"
	"cashflow-loans/internal/notify"
	"cashflow-loans/internal/portal"
	"cashflow-loans/internal/quote"
	"cashflow-loans/internal/server"
	"cashflow-loans/internal/submission"
	"cashflow-loans/pkg/registry"

	cq "cashflow-loans/internal/workers/loan/calculate-quote"
	sa "cashflow-loans/internal/workers/loan/submit-application"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan portal...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.LoadRegistry(cfg.Portal.RegistryPath)
	if err != nil {
		zapLog.Fatal("product registry load failed", zap.Error(err))
	}

	// --- Connections needed by the fallback store and rate limiter ---
	var conns fallback.Connections

	if cfg.Fallback.Backend == "redis" || (cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis) {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error { return rdb.Ping(ctx) }, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		conns.Redis = rdb
		zapLog.Info("Redis connected successfully")
	}

	if cfg.Fallback.Backend == "postgres" {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres open failed", zap.Error(err))
		}
		err = retryWithBackoff(func() error { return pg.Ping(ctx) }, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		conns.Postgres = pg
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Fallback.Backend == "elasticsearch" {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		err = retryWithBackoff(func() error { return es.Ping(ctx) }, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		conns.Elasticsearch = es
		zapLog.Info("Elasticsearch connected successfully")
	}

	store, err := fallback.New(cfg.Fallback, conns, log)
	if err != nil {
		zapLog.Fatal("fallback store init failed", zap.Error(err))
	}
	if pgStore, ok := store.(*fallback.PostgresStore); ok {
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("fallback table creation failed", zap.Error(err))
		}
	}

	// --- Submission pipeline ---
	crmClient := crm.NewClient(cfg.CRM.Endpoint, cfg.CRM.APIKey, config.GetDuration(cfg.CRM.Timeout))

	opts := []submission.Option{submission.WithObservability(obs)}
	if notifier := newNotifier(ctx, cfg, log, zapLog); notifier != nil {
		opts = append(opts, submission.WithNotifier(notifier))
	}
	svc := submission.NewService(crmClient, store, log, opts...)

	engine := quote.NewEngine()
	forms := portal.FormDeps{
		Builder:   application.NewBuilder(),
		Submitter: svc,
		Quotes:    engine,
		Contact:   portal.Contact{Phone: cfg.Portal.ContactPhone, Email: cfg.Portal.ContactEmail},
		Currency:  cfg.Portal.Currency,
		Logger:    log,
	}

	var limiterRedis redis.Cmdable
	if conns.Redis != nil {
		limiterRedis = conns.Redis.Client
	}
	limiter := ratelimit.FromConfig(cfg.RateLimit, limiterRedis, log)

	srv := server.New(cfg.Server, cfg.App, server.Deps{
		Registry: reg,
		Quotes:   engine,
		Forms:    forms,
		Store:    store,
		Limiter:  limiter,
		Logger:   log,
	})

	// --- Workflow job workers ---
	var workers *camunda.Workers
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")

		workers = camunda.NewWorkers(zeebe.GetClient(), log)
		started := workers.StartEnabled(cfg,
			camunda.Registration{ConfigKey: cq.ConfigKey, TaskType: cq.TaskType,
				Handler: cq.NewHandler(cq.ConfigFrom(cfg), engine, reg, log)},
			camunda.Registration{ConfigKey: sa.ConfigKey, TaskType: sa.TaskType,
				Handler: sa.NewHandler(sa.ConfigFrom(cfg), reg, forms, log)},
		)
		zapLog.Info("Workflow workers started", zap.Strings("taskTypes", started))
	}

	// --- Serve until a signal arrives ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Listen)
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()

		if workers != nil {
			workers.Close()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("Loan portal stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("Loan portal stopped gracefully")
}

// newNotifier returns nil when neither notification channel is enabled.
func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) notify.Notifier {
	n := cfg.Notifications
	if !n.Email.Enabled && !n.SMS.Enabled {
		return nil
	}

	var ses *aws.SESClient
	var sns *aws.SNSClient
	var err error
	if n.Email.Enabled {
		if ses, err = aws.NewSESClient(ctx, n.AWS.Region); err != nil {
			zapLog.Warn("SES client unavailable, email notifications disabled", zap.Error(err))
		}
	}
	if n.SMS.Enabled {
		if sns, err = aws.NewSNSClient(ctx, n.AWS.Region); err != nil {
			zapLog.Warn("SNS client unavailable, SMS notifications disabled", zap.Error(err))
		}
	}
	if ses == nil && sns == nil {
		return nil
	}

	return notify.NewOpsNotifier(notify.Config{
		EmailEnabled: ses != nil,
		FromEmail:    n.Email.FromEmail,
		ToEmail:      n.Email.ToEmail,
		SMSEnabled:   sns != nil,
		PhoneNumber:  n.SMS.PhoneNumber,
		SenderID:     n.SMS.SenderID,
		Currency:     cfg.Portal.Currency,
	}, ses, sns, log)
}
