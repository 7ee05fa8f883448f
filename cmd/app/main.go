package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelkov/carrylink/api"
	"github.com/avelkov/carrylink/config"
	"github.com/avelkov/carrylink/internal/auth"
	"github.com/avelkov/carrylink/internal/bootstrap"
	"github.com/avelkov/carrylink/internal/cache"
	"github.com/avelkov/carrylink/internal/kafka"
	"github.com/avelkov/carrylink/internal/repository"
	"github.com/avelkov/carrylink/internal/service/chat"
	"github.com/avelkov/carrylink/internal/service/listings"
	"github.com/avelkov/carrylink/internal/service/match"
	"github.com/avelkov/carrylink/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
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
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	identity := auth.NewIdentityProvider(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	tripRepo := repository.NewTripRepository(pool)
	shipmentRepo := repository.NewShipmentRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	hub := ws.NewHub()
	go hub.Run()

	listingService := listings.NewListingService(tripRepo, shipmentRepo, requestRepo, redisCache)
	matchService := match.NewMatchService(
		requestRepo,
		tripRepo,
		shipmentRepo,
		redisCache,
		producer,
		cfg.Kafka.MatchEventsTopic,
		time.Duration(cfg.Match.SubmitLockSeconds)*time.Second,
		match.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	chatService := chat.NewChatService(messageRepo, requestRepo, tripRepo, shipmentRepo, hub)

	listingHandler := api.NewListingHandler(listingService)
	requestHandler := api.NewRequestHandler(matchService)
	messageHandler := api.NewMessageHandler(chatService, hub)

	if err := bootstrap.Run(ctx, cfg, identity, listingHandler, requestHandler, messageHandler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
