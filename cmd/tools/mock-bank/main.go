// cmd/tools/mock-bank/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-desk/internal/bankmock"
	"loan-desk/internal/common/config"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/crm"
	"loan-desk/internal/documents"
	"loan-desk/internal/loan"
)

func main() {
	address := flag.String("address", ":9090", "listen address")
	dataDir := flag.String("data", "", "customer fixture directory (defaults to crm.data_dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	dir := *dataDir
	if dir == "" {
		dir = cfg.CRM.DataDir
	}

	directory, err := crm.NewFileDirectory(dir, log)
	if err != nil {
		zapLog.Fatal("customer fixture load failed", zap.Error(err))
	}

	pricing := loan.PricingConfig{
		ProcessingFeeRate: cfg.Lending.ProcessingFeeRate,
		Tenures:           loan.DefaultTenures,
	}

	docs, err := documents.NewService(cfg.Documents.UploadDir, cfg.Documents.OutputDir, cfg.Lending.SanctionValidityDays, log)
	if err != nil {
		zapLog.Fatal("document store init failed", zap.Error(err))
	}

	srv := bankmock.NewServer(directory, pricing, docs, log)

	go func() {
		if err := srv.Start(*address); err != nil {
			zapLog.Fatal("bank API stand-in failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("shutdown failed", zap.Error(err))
	}
}
