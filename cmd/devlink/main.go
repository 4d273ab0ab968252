package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devlink/internal/app/chatsync"
	"devlink/internal/infra/broker"
	"devlink/internal/infra/broker/kafka"
	"devlink/internal/infra/config"
	chatmongo "devlink/internal/infra/db/mongo"
	ginserver "devlink/internal/infra/http/gin"
	"devlink/internal/infra/obs"
	"devlink/internal/infra/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	client, err := chatmongo.New(cfg.MongoURI, cfg.MongoDB, cfg.MongoConnectTimeout)
	if err != nil {
		logger.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}

	bus := broker.NewBus()

	// With brokers configured, message events round-trip through Kafka so
	// every instance sees them. Without, the store feeds the local bus
	// directly.
	var publisher chatmongo.Publisher = bus
	var producer *kafka.Producer
	var consumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		publisher = kafka.EventPublisher{Producer: producer, Topic: cfg.KafkaTopic}

		consumer, err = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.EventHandler{Bus: bus, Logger: logger}, logger)
		if err != nil {
			logger.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := consumer.Run(ctx, []string{cfg.KafkaTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	store := chatmongo.NewStore(client.DB, publisher, logger)
	engines := chatsync.NewManager(chatTransport{Store: store, bus: bus}, logger, chatsync.Config{
		Retry: chatsync.RetryPolicy{
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: cfg.RetryInitialWait,
		},
		RetryDelay: cfg.ResyncRetryDelay,
	})

	hub := realtime.NewHub(store.ConversationMembers, logger)
	unsubscribeHub := bus.Subscribe(hub.HandleEvent)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: client.Ping,
	}, ginserver.Handlers{
		Chat:     ginserver.ChatHandler{Engines: engines, Logger: logger},
		Realtime: ginserver.NewRealtimeHandler(hub, logger),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		unsubscribeHub()
		hub.Close()
		engines.Close()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("kafka consumer close failed", "error", err)
			}
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				logger.Error("kafka producer close failed", "error", err)
			}
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// chatTransport composes the Mongo store with the live event bus into the
// engine's transport port.
type chatTransport struct {
	*chatmongo.Store
	bus *broker.Bus
}

func (t chatTransport) SubscribeNewMessages(fn func(chatsync.MessageEvent)) func() {
	return t.bus.Subscribe(fn)
}
