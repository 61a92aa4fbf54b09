package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/staybooking/api"
	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/bootstrap"
	"github.com/Domenick1991/staybooking/internal/cache"
	"github.com/Domenick1991/staybooking/internal/guard"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis)
	concurrencyGuard := guard.NewConcurrencyGuard(
		redisCache,
		cfg.Booking.RateLimitMax,
		time.Duration(cfg.Booking.RateLimitWindowSec)*time.Second,
		time.Duration(cfg.Booking.SlotLockTTLMinutes)*time.Minute,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
	)

	gateway := payment.NewStripeCardGateway(cfg.Payment)
	orchestrator := payment.NewOrchestrator(gateway)

	bookingRepo := repository.NewBookingRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		concurrencyGuard,
		orchestrator,
		cfg.Payment.Currency,
		cfg.Payment.PlatformFeeBps,
	)

	handler := api.NewBookingHandler(bookingService)

	if err := bootstrap.Run(ctx, cfg, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
