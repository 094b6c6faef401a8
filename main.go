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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/workforcehq/aegis/audit"
	"github.com/workforcehq/aegis/config"
	"github.com/workforcehq/aegis/controller"
	"github.com/workforcehq/aegis/dao"
	"github.com/workforcehq/aegis/db"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/middleware"
	"github.com/workforcehq/aegis/pdp/engine"
	"github.com/workforcehq/aegis/router"
	"github.com/workforcehq/aegis/service"
	"github.com/workforcehq/aegis/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize the audit pipeline
	auditRepository, err := audit.NewElasticsearchRepository(
		config.GetString("elasticsearch.url"),
		config.GetString("audit.index"),
	)
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository, config.GetInt("audit.queueSize"))
	auditService.Start(ctx)
	defer auditService.Stop()

	// Initialize DAOs
	policyDAO := dao.NewPolicyDAO(db.Neo4jDriver)
	employeeDAO := dao.NewEmployeeDAO(db.Neo4jDriver)

	// Initialize the decision engine
	policyCache := engine.NewPolicyCache(policyDAO, config.GetDuration("engine.policyCacheTTL"))
	conditionEvaluator := engine.NewConditionEvaluator()
	policyEvaluator := engine.NewPolicyEvaluator(policyCache, conditionEvaluator, auditService)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService()
	notificationService := util.NewNotificationService()

	policyService := service.NewPolicyService(
		policyDAO,
		validationUtil,
		policyCache,
		db.RedisLocker{},
		notificationService,
		eventBus,
	)

	// Initialize controllers
	controllers := controller.InitializeControllers(policyService, auditService)
	authorizer := middleware.NewAuthorizer(policyEvaluator, employeeDAO, cacheService)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	r := router.SetupRouter(
		controllers,
		authorizer,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"),
	)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: r,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
