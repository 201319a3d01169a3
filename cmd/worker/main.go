package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qrkiosk/internal/cloudinary"
	"qrkiosk/internal/config"
	"qrkiosk/internal/queue"
	"qrkiosk/internal/snapshot"
	"qrkiosk/internal/store"
)

// Worker consumes snapshot messages, uploads the archived image to
// Cloudinary, and records the mirror URL on the originating record. It never
// touches the attendance fields themselves.
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

	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		log.Fatal("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	records := store.NewPostgres(db.Client)

	archive, err := snapshot.NewDisk(cfg.SnapshotDir)
	if err != nil {
		log.Fatalf("snapshot dir unavailable: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "qrkiosk:snapshots")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("mirror worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeSnapshot {
			continue
		}

		rec, err := records.GetByID(ctx, msg.RecordID)
		if err != nil {
			log.Printf("fetch record %d failed: %v", msg.RecordID, err)
			continue
		}
		if rec.SnapshotFilename == nil || *rec.SnapshotFilename == "" {
			continue
		}

		data, err := archive.Load(*rec.SnapshotFilename)
		if err != nil {
			log.Printf("read snapshot for record %d failed: %v", rec.ID, err)
			continue
		}

		result, err := cdn.Upload(ctx, data, *rec.SnapshotFilename)
		if err != nil {
			log.Printf("mirror upload for record %d failed: %v", rec.ID, err)
			continue
		}

		if err := records.SetMirrorURL(ctx, rec.ID, result.SecureURL); err != nil {
			log.Printf("store mirror url for record %d failed: %v", rec.ID, err)
			continue
		}
		log.Printf("record %d snapshot mirrored to %s", rec.ID, result.SecureURL)
	}

	log.Println("worker stopped")
}
