package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	kdsapp "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/kds"
	orderapp "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/order"
	paymentapp "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	rediscache "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/cache/redis"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/encoding/avro"
	ginserver "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/http/gin"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/http/phonepe"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/http/pinelabs"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/http/rista"
	kafkainfra "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/messaging/kafka"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/persistence/postgres"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/interfaces/http/handler"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/interfaces/http/router"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	zlog, err := logger.NewZapLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(cfg.DB)
	if err != nil {
		zlog.Fatal("postgres connection failed", logger.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		zlog.Fatal("schema migration failed", logger.Error(err))
	}

	orderRepo := postgres.NewOrderRepository(pool)
	ticketRepo := postgres.NewTicketCounterRepository(pool)

	ristaClient := rista.NewClient(cfg.Rista)

	var catalogProvider catalog.Provider = ristaClient
	if cfg.Redis.Addr != "" {
		redisClient := rediscache.NewClient(cfg.Redis)
		defer func() { _ = redisClient.Close() }()
		ttl := time.Duration(cfg.Redis.CatalogTTL) * time.Second
		catalogProvider = rediscache.NewCatalogCache(redisClient, ristaClient, ttl, zlog)
	}

	qrGateway := phonepe.NewClient(cfg.PhonePe)
	edcGateway := pinelabs.NewClient(cfg.PineLabs)

	kdsService := kdsapp.NewService(orderRepo, catalogProvider, ristaClient, cfg.Rista.BranchCode, zlog)
	paymentService := paymentapp.NewService(orderRepo, qrGateway, edcGateway, kdsService, cfg.Payment.CashPIN, zlog)
	orderService := orderapp.NewService(catalogProvider, orderRepo, ticketRepo, zlog)

	codec, err := avro.NewCodec(avro.ReconcileCommandSchema)
	if err != nil {
		zlog.Fatal("avro codec init failed", logger.Error(err))
	}

	producer, err := kafkainfra.NewReconcileProducer(cfg.Kafka, codec, zlog)
	if err != nil {
		zlog.Fatal("kafka producer init failed", logger.Error(err))
	}
	defer producer.Close()

	consumer := kafkainfra.NewReconcileConsumer(cfg.Kafka, codec, paymentService, zlog)
	defer consumer.Close()

	orderHandler := handler.NewOrderHandler(orderService, zlog)
	paymentHandler := handler.NewPaymentHandler(paymentService, zlog)
	webhookHandler := handler.NewWebhookHandler(producer, cfg.PhonePe, zlog)
	catalogHandler := handler.NewCatalogHandler(catalogProvider, zlog)

	engine := ginserver.NewEngine()
	router.RegisterRoutes(engine, orderHandler, paymentHandler, webhookHandler, catalogHandler)
	server := ginserver.NewServer(cfg.Server, engine)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info("http server starting", logger.String("addr", cfg.Server.Address()))
		return server.Run()
	})

	g.Go(func() error {
		zlog.Info("reconcile consumer starting", logger.String("topic", cfg.Kafka.ReconcileTopic))
		if err := consumer.Start(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zlog.Fatal("service stopped", logger.Error(err))
	}
}
