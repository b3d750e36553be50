package main

import (
	"fmt"
	"net/http"

	"redwarm/app/handler"
	"redwarm/app/router"
	"redwarm/internal/service"
	"redwarm/internal/worker"
	"redwarm/pkg/config"
	"redwarm/pkg/logger"
	"redwarm/pkg/notification"
	queueasynq "redwarm/pkg/queue/asynq"
	"redwarm/pkg/reddit"
	mysqlstore "redwarm/pkg/store/mysql"
	redisstore "redwarm/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	repo, err := mysqlstore.NewRepository(app.config.MySQL.DSN())
	if err != nil {
		return err
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis
func (app *Application) initRedis() error {
	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initQueue initializes the job queue manager and registers the step handler
func (app *Application) initQueue() error {
	manager, err := queueasynq.NewManager(app.config)
	if err != nil {
		return fmt.Errorf("failed to create queue manager: %w", err)
	}

	app.queueManager = manager
	app.registerCleanup(func() {
		manager.Close()
		logger.InfoCtx(app.ctx, "Queue connections have been closed")
	})

	// The worker needs the queue to schedule follow-up steps, so it is
	// wired here rather than in the service layer step.
	redditClient := reddit.NewClient(app.config.Reddit.BaseURL)
	app.warmupWorker = worker.NewWarmupWorker(app.mysqlRepo.Account, manager, redditClient)
	manager.RegisterHandler(queueasynq.TypeWarmupStep, app.warmupWorker)

	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	app.warmupService = service.NewWarmupService(app.mysqlRepo.Account, app.queueManager)
	app.healthService = service.NewHealthService(app.mysqlRepo.Account, app.queueManager)
	app.notifier = notification.NewFeishuNotifier()
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.warmupHandler = handler.NewWarmupHandler(app.warmupService)
	app.healthHandler = handler.NewHealthHandler(app.healthService)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(app.warmupHandler, app.healthHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()
	app.ginEngine.Use(gin.Recovery())

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server
	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
