package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout.git/internal/config"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payments"
	"github.com/ariefcatur/go-shop-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/joho/godotenv"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer: order status events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicOrderStatus, 1024)
	prod.Start(ctx)

	// Service
	store := &checkout.PgStore{DB: db}
	svc := &payments.Service{
		Orders:      &checkout.OrderService{Store: store},
		Redis:       rdb,
		Producer:    prod,
		ServiceName: cfg.ServiceName + "-payments",
	}

	// Consumer: notifikasi status pembayaran dari gateway
	group := getenv("PAYMENTS_GROUP", "payments-sink")
	workers := mustAtoi(os.Getenv("PAYMENTS_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, checkout.TopicPaymentStatus, workers)

	go func() {
		log.Printf("payments consumer started: group=%s topic=%s workers=%d", group, checkout.TopicPaymentStatus, workers)
		if err := cons.Start(ctx, svc.HandlePaymentReported); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
