package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nischhal-hub/lynx.io-server/config"
	"github.com/nischhal-hub/lynx.io-server/module/core"
	"github.com/nischhal-hub/lynx.io-server/internal/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	redisClient, err := config.NewRedis(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer func() { _ = redisClient.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttClient.Disconnect(250)

	coreModule, err := core.Build(db, redisClient, amqpConn, mqttClient, core.Options{
		PipelineWorkers:   cfg.PipelineWorkers,
		PipelineQueueSize: cfg.PipelineQueueSize,
		ProximityRadiusM:  cfg.ProximityRadiusM,
		GeofenceRefresh:   time.Duration(cfg.GeofenceRefreshSecs) * time.Second,
		PushEndpoint:      cfg.PushGatewayEndpoint,
	})
	if err != nil {
		log.Fatalf("core module: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := coreModule.Start(ctx); err != nil {
		log.Fatalf("core start: %v", err)
	}
	defer coreModule.Stop()

	if err := coreModule.StartSubscribers(); err != nil {
		log.Fatalf("start subscribers: %v", err)
	}

	r := gin.Default()

	health := config.NewHealthChecker(db, redisClient, amqpConn, mqttClient)
	health.Register(r)
	r.GET("/metrics", gin.WrapF(metrics.HandleMetrics))

	coreModule.RegisterRoutes(&r.RouterGroup)

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server: %v", err)
	}
}
