package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelkov/carrylink/config"
	"github.com/avelkov/carrylink/internal/cache"
	"github.com/avelkov/carrylink/internal/kafka"
	"github.com/avelkov/carrylink/internal/notify"
	"github.com/avelkov/carrylink/internal/repository"
	"github.com/avelkov/carrylink/internal/service/listings"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	_ = godotenv.Load()

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

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Match.ListingsCacheTTL)*time.Second)

	tripRepo := repository.NewTripRepository(pool)
	shipmentRepo := repository.NewShipmentRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	listingService := listings.NewListingService(tripRepo, shipmentRepo, requestRepo, redisCache)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := notify.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.MatchEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return sender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	for {
		select {
		case <-expireTicker.C:
			expired, err := listingService.ExpireOverdue(ctx)
			if err != nil {
				log.Printf("expire listings error: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("expired %d listings", expired)
			}
		case <-ctx.Done():
			log.Printf("shutting down")
			return
		}
	}
}
