package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"streamdoc-engine/internal/config"
	"streamdoc-engine/internal/controller"
	"streamdoc-engine/internal/pkg/logger"
	"streamdoc-engine/internal/repository/implementation"
	"streamdoc-engine/internal/service"
	"streamdoc-engine/internal/websocket"
	pkgNats "streamdoc-engine/pkg/nats"
)

type Container struct {
	// Controllers
	StreamController controller.IStreamController
	CellController   controller.ICellController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Editor runtime
	EditorService service.IEditorService
	WebSocketHub  *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	cellRepo := implementation.NewCellRepository(db)
	streamRepo := implementation.NewStreamRepository(db)

	// 2. Persist queue (in-process)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	publisherService := service.NewPublisherService(pubSub, cfg.Engine.PersistTopic, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Engine.PersistTopic, cellRepo)

	// 3. Generation gateway (NATS)
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}
	generationService := service.NewGenerationService(natsPub, natsSub, sysLogger)

	// 4. Editor engine
	editorService := service.NewEditorService(
		cellRepo,
		streamRepo,
		publisherService,
		generationService,
		sysLogger,
		cfg.Engine.PersistDebounce,
		cfg.Engine.PriorCellBudget,
	)

	if natsSub != nil {
		if err := generationService.Listen(editorService); err != nil {
			log.Printf("[WARN] Failed to subscribe to generation events: %v", err)
		}
	}

	// 5. Redis (optional, cross-instance websocket fanout)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// 6. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, editorService, wsLogger)
	go wsHub.Run()
	editorService.SetBroadcaster(wsHub)

	// 7. REST services
	streamService := service.NewStreamService(streamRepo, cellRepo)
	cellService := service.NewCellService(cellRepo, streamRepo)

	return &Container{
		StreamController: controller.NewStreamController(streamService),
		CellController:   controller.NewCellController(cellService),
		ConsumerService:  consumerService,
		EditorService:    editorService,
		WebSocketHub:     wsHub,
		Logger:           sysLogger,
	}
}
