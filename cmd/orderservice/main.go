// Command orderservice runs the exactly-once order-ingestion pipeline: the
// primary consumer (Components A, C, D) and the DLT reconciler (Component
// E), sharing one database, cache, and message bus connection.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fqueis/moutsti-order-service/internal/order/application"
	"github.com/fqueis/moutsti-order-service/internal/order/config"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/idempotency"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/messaging/rabbitmq"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/persistence"
	"github.com/fqueis/moutsti-order-service/shared/infra/cache"
	"github.com/fqueis/moutsti-order-service/shared/infra/database"
	"github.com/fqueis/moutsti-order-service/shared/infra/messaging"
	"github.com/fqueis/moutsti-order-service/shared/infra/migration"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, relying on process environment")
	}

	cfg := config.FromEnv()

	mgr, err := migration.NewMigrationManager(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to create migration manager: %v", err)
	}
	if err := mgr.Up(); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	if err := mgr.Close(); err != nil {
		log.Printf("failed to close migration manager: %v", err)
	}

	db, err := database.NewSqlxDatabase("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cacheHandler := cache.NewRedisCacheHandler(redisClient)
	gate := idempotency.NewRedisGate(cacheHandler)

	msgConfig := messaging.NewMessageHandlerConfigFromEnv()
	msgConfig.URL = cfg.RabbitMQURL
	messageHandler, err := messaging.NewRabbitMQMessageHandler(msgConfig)
	if err != nil {
		log.Fatalf("failed to connect to message bus: %v", err)
	}
	defer messageHandler.Close()

	topology := rabbitmq.NewTopologyManager(messageHandler, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := topology.SetupAll(ctx); err != nil {
		log.Fatalf("failed to set up queue topology: %v", err)
	}

	publisher := application.NewRabbitCompletionPublisher(topology)
	processor := application.NewProcessor(db, publisher)
	consumer := application.NewConsumer(gate, processor, topology, cfg.Retry)

	orderRepo := persistence.NewOrderRepository(db)
	reconciler := application.NewReconciler(orderRepo)

	if err := messageHandler.Consume(ctx, topology.Names().Received, consumer); err != nil {
		log.Fatalf("failed to start received-topic consumer: %v", err)
	}
	if err := messageHandler.Consume(ctx, topology.Names().DLT, reconciler); err != nil {
		log.Fatalf("failed to start DLT-topic consumer: %v", err)
	}

	log.Printf("order service started: received=%s dlt=%s processed=%s",
		topology.Names().Received, topology.Names().DLT, topology.Names().Processed)

	waitForShutdown(cancel)
}

// waitForShutdown blocks until SIGINT/SIGTERM, then cancels the consumer
// context and allows in-flight handlers a bounded grace period to finish
// (spec §5: "a shutdown signal causes in-flight transactions to either
// commit ... or rely on partition re-assignment and redelivery on restart").
func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("shutdown signal received, draining in-flight work...")
	cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(shutdownTimeout)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("shutdown grace period elapsed")
	case <-time.After(shutdownTimeout + time.Second):
		log.Printf("shutdown timed out")
	}
}
