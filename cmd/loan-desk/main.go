// cmd/loan-desk/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-desk/internal/agents/master"
	"loan-desk/internal/agents/sales"
	"loan-desk/internal/agents/sanction"
	"loan-desk/internal/agents/underwriting"
	"loan-desk/internal/agents/verification"
	"loan-desk/internal/archive"
	"loan-desk/internal/bureau"
	"loan-desk/internal/common/aws"
	"loan-desk/internal/common/config"
	"loan-desk/internal/common/database"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/common/observability"
	"loan-desk/internal/crm"
	"loan-desk/internal/documents"
	"loan-desk/internal/loan"
	"loan-desk/internal/notify"
	"loan-desk/internal/phrases"
	"loan-desk/internal/server"
	"loan-desk/internal/session"
	"loan-desk/internal/workflow"
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan desk",
		zap.String("environment", cfg.App.Environment),
		zap.String("crm_source", cfg.CRM.Source),
	)

	obs := observability.New("loan-desk")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Customer directory ---
	directory, cleanup, err := buildDirectory(ctx, cfg, log, zapLog)
	if err != nil {
		zapLog.Fatal("customer directory init failed", zap.Error(err))
	}
	defer cleanup()

	// --- Session store ---
	var store session.Store = session.NewMemoryStore()
	if cfg.Database.Redis.Address != "" {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()

		ttl := time.Duration(cfg.Pipeline.SessionTTL) * time.Second
		store = session.NewRedisStore(redis, ttl)
		zapLog.Info("Redis session store connected")
	}

	// --- Conversation archive ---
	var archiver archive.Archiver = archive.NoOpArchiver{}
	if cfg.Integrations.Archive.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		archiver = archive.NewElasticsearchArchiver(esClient, cfg.Integrations.Archive.Index, log)
		zapLog.Info("Conversation archive enabled", zap.String("index", cfg.Integrations.Archive.Index))
	}

	// --- Collaborators ---
	docs, err := documents.NewService(cfg.Documents.UploadDir, cfg.Documents.OutputDir, cfg.Lending.SanctionValidityDays, log)
	if err != nil {
		zapLog.Fatal("document service init failed", zap.Error(err))
	}

	notifier := buildNotifier(ctx, cfg, log, zapLog)

	bureauSvc := bureau.NewService(directory, bureau.Config{
		MinCreditScore:        cfg.Lending.MinCreditScore,
		PreApprovedMultiplier: cfg.Lending.PreApprovedMultiplier,
		ObligationCapRatio:    cfg.Lending.ObligationCapRatio,
		ReferenceAnnualRate:   cfg.Lending.ReferenceAnnualRate,
		ReferenceTenureMonths: cfg.Lending.ReferenceTenureMonths,
	}, log)

	pricing := loan.PricingConfig{
		ProcessingFeeRate: cfg.Lending.ProcessingFeeRate,
		Tenures:           loan.DefaultTenures,
	}

	composer := phrases.NewComposer()

	// --- Pipeline ---
	orchestrator := workflow.NewOrchestrator(store, archiver, cfg.Pipeline.MaxStepsPerTurn, log,
		master.NewHandler(directory, composer, log),
		sales.NewHandler(directory, pricing, composer, log),
		verification.NewHandler(notifier, cfg.Lending.OTPMaxAttempts, composer, log),
		underwriting.NewHandler(bureauSvc, docs, composer, log),
		sanction.NewHandler(docs, notifier, composer, log),
	)

	srv := server.NewServer(cfg, orchestrator, docs, obs, log)

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

func buildDirectory(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) (crm.Directory, func(), error) {
	switch cfg.CRM.Source {
	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, func() {}, err
		}
		zapLog.Info("PostgreSQL customer directory connected")
		return crm.NewPostgresDirectory(pg), func() { pg.Close() }, nil

	case "remote":
		timeout := config.GetDuration(cfg.CRM.Timeout)
		zapLog.Info("Remote customer directory configured", zap.String("url", cfg.CRM.RemoteURL))
		return crm.NewRemoteDirectory(cfg.CRM.RemoteURL, timeout), func() {}, nil

	default:
		directory, err := crm.NewFileDirectory(cfg.CRM.DataDir, log)
		if err != nil {
			return nil, func() {}, err
		}
		return directory, func() {}, nil
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) *notify.Notifier {
	var opts []notify.Option

	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Warn("SNS client init failed, codes will not be texted", zap.Error(err))
		} else {
			opts = append(opts, notify.WithSNS(snsClient))
		}
	}

	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Warn("SES client init failed, letters will not be emailed", zap.Error(err))
		} else {
			opts = append(opts, notify.WithSES(sesClient, cfg.Integrations.AWS.SES.FromEmail))
		}
	}

	return notify.NewNotifier(log, opts...)
}
