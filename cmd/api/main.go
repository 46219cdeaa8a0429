package main

import (
	"context"
	"log"
	"time"

	"upload-gateway/config"
	"upload-gateway/internal/audit"
	"upload-gateway/internal/events"
	"upload-gateway/internal/handler"
	"upload-gateway/internal/idgen"
	"upload-gateway/internal/lock"
	"upload-gateway/internal/metadata"
	"upload-gateway/internal/redis"
	"upload-gateway/internal/server"
	"upload-gateway/internal/services"
	"upload-gateway/internal/storage"
	"upload-gateway/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	defer l.Logger.Sync()

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	jobStore := redis.NewJobStore(redisClient)
	queue := events.NewRedisQueue(redis.NewPublisher(redisClient), cfg.EventChannel)

	objects, err := storage.NewClient(context.Background(), storage.S3Config{
		Region:     cfg.S3Region,
		Endpoint:   cfg.S3Endpoint,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		PresignTTL: time.Duration(cfg.PresignTTLMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	zoneLabel := func(zone string) string {
		if zone == services.ZoneCore {
			return cfg.CoreZoneLabel
		}
		return cfg.GreenZoneLabel
	}

	locker := lock.NewClient(cfg.LockServiceURL)
	meta := metadata.NewClient(cfg.MetadataServiceURL, zoneLabel)
	ids := idgen.NewClient(cfg.IDServiceURL)
	auditSink := audit.NewClient(cfg.ProvenanceServiceURL)

	folders := services.NewFolderManager(meta, ids)
	finalizer := services.NewFinalizer(locker, meta, objects, auditSink, queue, l, cfg.Namespace, zoneLabel)
	uploads := services.NewUploadService(jobStore, locker, meta, ids, folders, finalizer, l, cfg.TempBase, cfg.Namespace)
	folderSvc := services.NewFolderService(meta, ids, locker, l)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Upload:  handler.NewUploadHandler(uploads),
		Folder:  handler.NewFolderHandler(folderSvc),
		Presign: handler.NewPresignHandler(objects),
	}, jobStore)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
