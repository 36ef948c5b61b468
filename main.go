package main

import (
	"log"
	"os"

	"github.com/flexmatch/flexmatch-api/config"
	"github.com/flexmatch/flexmatch-api/internal/consumer"
	"github.com/flexmatch/flexmatch-api/internal/handler"
	"github.com/flexmatch/flexmatch-api/internal/middleware"
	"github.com/flexmatch/flexmatch-api/internal/notifier"
	"github.com/flexmatch/flexmatch-api/internal/payment"
	"github.com/flexmatch/flexmatch-api/internal/realtime"
	"github.com/flexmatch/flexmatch-api/internal/repository"
	"github.com/flexmatch/flexmatch-api/internal/service"
	"github.com/flexmatch/flexmatch-api/pkg/database"
	"github.com/flexmatch/flexmatch-api/pkg/logging"
	"github.com/flexmatch/flexmatch-api/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	db := database.NewPostgresDB(cfg.DSN())

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	registry := realtime.NewRedisRegistry(redisClient)

	// Repositories
	txm := repository.NewTxManager(db)
	bookingRepo := repository.NewBookingRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Notification pipeline
	sink := notifier.NewRabbitSink(publisher, logger)
	notificationConsumer := consumer.NewNotificationConsumer(notificationRepo, registry, publisher, logger)
	notificationConsumer.Start(msgs)

	// Booking service
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	bookingSvc := service.NewBookingService(
		txm,
		bookingRepo,
		resourceRepo,
		userRepo,
		gateway,
		sink,
		logger,
		cfg.PublicBaseURL,
		cfg.Currency,
	)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "flexmatch-api"})
	})

	handler.NewWebhookHandler(bookingSvc, gateway, logger).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e, cfg.JWTSecret)
	handler.NewPresenceHandler(registry, notificationRepo, logger).RegisterRoutes(e, cfg.JWTSecret)

	logger.Info("flexmatch api starting", "port", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
