package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classtrack/internal/checkin"
	"classtrack/internal/config"
	"classtrack/internal/ids"
	"classtrack/internal/queue"
	"classtrack/internal/store"
)

// Worker consumes check-in messages and rewrites the cached subject and
// student summaries so stats reads stay warm.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	gen := ids.NewGenerator(db.Client, cfg.IDRetryLimit)
	svc := checkin.NewService(checkin.NewRepository(db.Client, gen), redisClient, nil, cfg.StatsCacheTTL)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeCheckin {
			continue
		}
		id := string(msg.Body)
		if err := svc.Refresh(ctx, id); err != nil {
			log.Printf("refresh for %s failed: %v", id, err)
			continue
		}
		log.Printf("stats refreshed for %s", id)
	}

	log.Println("worker stopped")
}
