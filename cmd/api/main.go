package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-crosscheck-api/internal/config"
	"github.com/noah-isme/gema-crosscheck-api/internal/database"
	"github.com/noah-isme/gema-crosscheck-api/internal/handler"
	"github.com/noah-isme/gema-crosscheck-api/internal/middleware"
	"github.com/noah-isme/gema-crosscheck-api/internal/repository"
	"github.com/noah-isme/gema-crosscheck-api/internal/router"
	"github.com/noah-isme/gema-crosscheck-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := []handler.HealthProbe{{Name: "postgres", Check: database.PingDatabase(db)}}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: database.PingRedis(redisClient)})
	} else {
		logger.Warn().Msg("redis not configured; task locks and assignment cache are local only")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: database.PingNATS(natsConn)})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseTaskRepo := repository.NewCourseTaskRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	solutionRepo := repository.NewTaskSolutionRepository(db)
	crossCheckRepo := repository.NewCrossCheckRepository(db)
	taskResultRepo := repository.NewTaskResultRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	scoreEvents := service.NewScoreEventPublisher(redisClient, cfg.RealtimeChannel, natsConn, logger)
	scoreEvents.Start(rootCtx)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	taskResultService := service.NewTaskResultService(taskResultRepo, scoreEvents, cfg.PublishConcurrency, logger)
	crossCheckService := service.NewCrossCheckService(service.CrossCheckRepositories{
		Tasks:       courseTaskRepo,
		Students:    studentRepo,
		Solutions:   solutionRepo,
		CrossChecks: crossCheckRepo,
		Activity:    activityRepo,
	}, taskResultService, service.NewTaskLocker(redisClient, cfg.TaskLockTTL), redisClient, activityService, validate, service.CrossCheckOptions{
		DefaultPairsCount:   cfg.DefaultPairsCount,
		Seed:                cfg.DistributionSeed,
		AssignmentsCacheTTL: cfg.AssignmentsCacheTTL,
	}, logger)

	crossCheckHandler := handler.NewCrossCheckHandler(
		crossCheckService,
		middleware.RateLimit("crosscheck-review", cfg.ReviewRateLimit, cfg.ReviewRateWindow),
		logger,
	)
	adminCrossCheckHandler := handler.NewAdminCrossCheckHandler(crossCheckService, activityService, logger)
	scoreStreamHandler := handler.NewScoreStreamHandler(crossCheckService, scoreEvents, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CrossCheckHandler:      crossCheckHandler,
		AdminCrossCheckHandler: adminCrossCheckHandler,
		ScoreStreamHandler:     scoreStreamHandler,
		JWTMiddleware:          middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:           probes,
		ExposeMetrics:          true,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
