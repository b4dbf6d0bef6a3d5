package main

import (
	"context"
	"flag"
	"log"
	"time"

	kdsapp "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/kds"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/http/rista"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/persistence/postgres"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

// One-shot tool: re-posts paid orders whose KDS sync failed. Run it from
// cron or by hand after a KDS outage.
func main() {
	limit := flag.Int("limit", 100, "max orders to retry in one run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	zlog, err := logger.NewZapLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(cfg.DB)
	if err != nil {
		zlog.Fatal("postgres connection failed", logger.Error(err))
	}
	defer pool.Close()

	orderRepo := postgres.NewOrderRepository(pool)
	ristaClient := rista.NewClient(cfg.Rista)
	kdsService := kdsapp.NewService(orderRepo, ristaClient, ristaClient, cfg.Rista.BranchCode, zlog)

	orders, err := orderRepo.FindCompletedByKdsStatus(ctx, domain.KdsFailed, *limit)
	if err != nil {
		zlog.Fatal("list failed orders", logger.Error(err))
	}

	zlog.Info("resync starting", logger.Int("orders", len(orders)))

	var synced, failed int
	for _, o := range orders {
		if err := kdsService.Sync(ctx, o); err != nil {
			failed++
			zlog.Warn("resync failed",
				logger.String("order_id", o.OrderID),
				logger.Error(err))
			continue
		}
		synced++
		zlog.Info("resync ok",
			logger.String("order_id", o.OrderID),
			logger.String("invoice_id", o.KdsInvoiceID))
	}

	zlog.Info("resync finished",
		logger.Int("synced", synced),
		logger.Int("failed", failed))
}
