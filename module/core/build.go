package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/nischhal-hub/lynx.io-server/module/core/internal/distributor"
	handler "github.com/nischhal-hub/lynx.io-server/module/core/internal/handler/http"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/handler/subscriber"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/handler/ws"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/push"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/database/postgres"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nischhal-hub/lynx.io-server/module/core/internal/repository/state"
	"github.com/nischhal-hub/lynx.io-server/module/core/service"
)

// Options carries the tuning knobs the server reads from the environment.
type Options struct {
	PipelineWorkers   int
	PipelineQueueSize int
	ProximityRadiusM  float64
	GeofenceRefresh   time.Duration
	PushEndpoint      string
}

type Module struct {
	Pipeline    *service.Pipeline
	PositionSvc *service.PositionService
	Index       *service.GeofenceIndex
	Distributor *distributor.Distributor

	handler    *handler.TrackingHandler
	wsHandler  *ws.Handler
	subscriber *subscriber.PositionSubscriber
}

func Build(db *sql.DB, redisClient *redis.Client, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	positionRepo := postgres.NewPositionRepo(db)
	membershipRepo := postgres.NewMembershipRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)
	notificationRepo := postgres.NewNotificationRepo(db)
	directory := postgres.NewDirectoryRepo(db)
	latestStore := state.NewLatestStore(redisClient)

	bridge, err := rabbitmq.NewEventPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	dist := distributor.New()

	var sender service.PushSender
	if opts.PushEndpoint != "" {
		sender = push.NewClient(opts.PushEndpoint)
	}
	sink := service.NewNotificationSink(notificationRepo, directory, dist, sender)

	index := service.NewGeofenceIndex(geofenceRepo, opts.GeofenceRefresh)
	tracker := service.NewMembershipTracker(membershipRepo, directory)
	matcher := service.NewProximityMatcher(latestStore)
	normalizer := service.NewNormalizer(directory)

	pipeline := service.NewPipeline(
		normalizer,
		positionRepo,
		latestStore,
		index,
		tracker,
		matcher,
		dist,
		bridge,
		sink,
		service.PipelineConfig{
			Workers:               opts.PipelineWorkers,
			QueueSize:             opts.PipelineQueueSize,
			ProximityRadiusMeters: opts.ProximityRadiusM,
		},
	)

	positionSvc := service.NewPositionService(positionRepo)

	h := handler.NewTrackingHandler(pipeline, positionSvc, sink)
	wsHandler := ws.NewHandler(dist)
	sub := subscriber.NewPositionSubscriber(mqttClient, pipeline)

	return &Module{
		Pipeline:    pipeline,
		PositionSvc: positionSvc,
		Index:       index,
		Distributor: dist,
		handler:     h,
		wsHandler:   wsHandler,
		subscriber:  sub,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
	m.wsHandler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

// Start primes the geofence snapshot and launches the background loops.
func (m *Module) Start(ctx context.Context) error {
	if err := m.Index.Refresh(ctx); err != nil {
		return fmt.Errorf("geofence snapshot: %w", err)
	}
	go m.Index.Run(ctx)
	m.Pipeline.Start(ctx)
	return nil
}

func (m *Module) Stop() {
	m.Pipeline.Stop()
}
