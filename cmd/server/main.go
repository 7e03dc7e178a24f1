package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dw-pipeline/config"
	"dw-pipeline/internal/api"
	"dw-pipeline/internal/broker"
	"dw-pipeline/internal/configstore"
	"dw-pipeline/internal/models"
	"dw-pipeline/internal/redisclient"
	"dw-pipeline/internal/service"
	"dw-pipeline/internal/store"
	"dw-pipeline/internal/supervisor"
	"dw-pipeline/internal/util"
	"dw-pipeline/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pipeline coordinator")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("dw-pipeline", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	cfgStore := configstore.New(cfg.Paths.ConfigDir)
	connInfo, err := cfgStore.LoadConnection()
	if err != nil {
		log.Fatalf("Failed to load connection settings: %v", err)
	}

	// The warehouse may be offline at boot; the coordinator still serves
	// config and connection-test endpoints so the user can fix it.
	var db *store.Store
	if db, err = store.NewStore(connInfo.DSN()); err != nil {
		log.Printf("Database not reachable at startup: %v", err)
		db = nil
	} else {
		defer db.Close()
		log.Println("Database connected")
	}

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Redis not reachable, caching disabled: %v", err)
		} else {
			defer redisClient.Close()
			log.Println("Redis connected")
		}
	}

	var sink supervisor.EventSink
	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		sink = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	sup := supervisor.New(sink)
	pipelineService := service.NewPipelineService(db, sup, cfgStore, redisClient, cfg.Paths.DataDir)
	for name, cmdline := range cfg.Pipeline.ExternalCommands {
		id, ok := models.ParseStage(name)
		if !ok {
			log.Printf("Ignoring external command for unknown stage %q", name)
			continue
		}
		pipelineService.UseExternalCommand(id, cmdline)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var stageWorker *worker.StageWorker
	if cfg.Kafka.Enabled {
		requestConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicRequests, cfg.Kafka.ConsumerGroup)
		stageWorker = worker.NewStageWorker(requestConsumer, pipelineService)
		go func() {
			if err := stageWorker.Start(workerCtx); err != nil {
				log.Printf("Stage worker error: %v", err)
			}
		}()
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		log.Printf("Failed to create data directory: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(pipelineService, cfg.Paths.DataDir)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if stageWorker != nil {
		stageWorker.Stop()
	}

	log.Println("Server exited")
}
