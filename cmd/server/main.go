package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/leadflow/sap-gateway/internal/billing"
	"github.com/leadflow/sap-gateway/internal/config"
	httpserver "github.com/leadflow/sap-gateway/internal/interfaces/http"
	"github.com/leadflow/sap-gateway/internal/invoicing"
	"github.com/leadflow/sap-gateway/internal/repository"
	"github.com/leadflow/sap-gateway/internal/sap"
	"github.com/leadflow/sap-gateway/pkg/database"
	"github.com/leadflow/sap-gateway/pkg/logger"
)

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting lead invoicing gateway",
		zap.Int("port", cfg.Server.Port),
		zap.String("sap_base_url", cfg.SAP.BaseURL))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, log)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	leadRepo := repository.NewLeadRepository(db.DB, log)

	sessions := sap.NewSessionStore()
	sapClient := sap.NewClient(sap.Config{
		BaseURL:   cfg.SAP.BaseURL,
		CompanyDB: cfg.SAP.CompanyDB,
		Username:  cfg.SAP.Username,
		Password:  cfg.SAP.Password,
		Timeout:   cfg.SAP.Timeout,
	}, sessions, log)
	partnerAPI := sap.NewPartnerAPI(sapClient, log)
	invoiceAPI := sap.NewInvoiceAPI(sapClient, log)

	allocator := billing.NewAllocator(cfg.Billing.CashAccounts, log)
	orchestrator := invoicing.NewOrchestrator(sapClient, partnerAPI, invoiceAPI, allocator, leadRepo, log)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		APIKey:       cfg.API.Key,
	}, orchestrator, leadRepo, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}
