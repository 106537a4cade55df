package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/fieldclaims/fieldclaims/internal/application/dispatcher"
	"github.com/fieldclaims/fieldclaims/internal/application/export"
	"github.com/fieldclaims/fieldclaims/internal/application/service"
	"github.com/fieldclaims/fieldclaims/internal/config"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/audit"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/notify"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/repository"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/sqlite"
	httpadapter "github.com/fieldclaims/fieldclaims/internal/interfaces/http"
	"github.com/fieldclaims/fieldclaims/pkg/database"
	"github.com/fieldclaims/fieldclaims/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting field claims billing service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	sugar := utils.Sugar(logger)

	// persistence
	txDB := sqlite.NewDB(db.DB, logger)
	unitRepo := repository.NewUnitEntryRepository(txDB, logger)
	claimRepo := repository.NewClaimRepository(txDB, logger)
	rateBook := repository.NewRateBookRepository(txDB, logger)

	// event fan-out: notifications and audit ride behind the dispatcher so
	// their failures never touch billing operations
	disp := dispatcher.New(sugar)
	defer disp.Close()

	auditLog := audit.NewLogger(logger)
	for _, t := range event.AllTypes() {
		disp.Subscribe(t, "audit", auditLog.Record)
	}

	if cfg.Lark.AppID != "" {
		notifier := notify.NewLarkNotifier(notify.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			ChatID:    cfg.Lark.ChatID,
		}, logger)
		for _, t := range event.AllTypes() {
			disp.Subscribe(t, "lark", notifier.Notify)
		}
	}

	// services
	unitService := service.NewUnitEntryService(unitRepo, rateBook, txDB, disp, sugar, cfg.Billing.GPSAccuracyLimit)
	claimService := service.NewClaimService(claimRepo, unitRepo, txDB, disp, sugar, cfg.Billing.DefaultDueDays)
	exportService := service.NewExportService(claimRepo, disp, sugar, export.Options{
		BusinessUnit:       cfg.Export.BusinessUnit,
		VendorID:           cfg.Export.VendorID,
		Currency:           cfg.Export.Currency,
		Source:             cfg.Export.Source,
		ContractorCategory: cfg.Export.ContractorCategory,
	})

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, unitService, claimService, exportService, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
