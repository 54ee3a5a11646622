package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"presence/internal/analytics"
	"presence/internal/config"
	"presence/internal/ledger"
	"presence/internal/queue"
	"presence/internal/store"
)

// Worker consumes committed-redemption events, keeps the per-group trend
// counters warm and flags people whose attendance slipped under the
// watchlist cutoff. It runs outside the redemption path; a redemption
// never waits on it.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL, store.Pool{
		MaxOpen:      cfg.DBMaxOpenConns,
		MaxIdle:      cfg.DBMaxIdleConns,
		ConnLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "presence:events")
	}

	records := ledger.NewRepository(db.Client)
	trend := analytics.NewTrendCache(redisClient.Client, cfg.TrendCacheTTL)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeRedemption {
			continue
		}

		id := string(msg.Body)
		rec, err := records.GetRecord(ctx, id)
		if err != nil {
			log.Printf("fetch record %s failed: %v", id, err)
			continue
		}

		if err := trend.Bump(ctx, rec.GroupID, rec.Day); err != nil {
			log.Printf("trend bump for %s failed: %v", rec.GroupID, err)
		}

		dates, err := records.DistinctSessionDates(ctx, rec.GroupID)
		if err != nil {
			log.Printf("session dates for %s failed: %v", rec.GroupID, err)
			continue
		}
		present, err := records.CountPresent(ctx, rec.GroupID, rec.PersonID)
		if err != nil {
			log.Printf("present count for %s failed: %v", rec.PersonID, err)
			continue
		}

		if total := len(dates); total > 0 {
			pct := float64(present) / float64(total) * 100
			if pct < analytics.LowAttendanceCutoff {
				log.Printf("low attendance: person %s in group %s at %.2f%% (%d of %d sessions)",
					rec.PersonID, rec.GroupID, pct, present, total)
			}
		}
	}

	log.Println("worker stopped")
}
