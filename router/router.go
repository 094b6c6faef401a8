// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workforcehq/aegis/controller"
	"github.com/workforcehq/aegis/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	authorizer *middleware.Authorizer,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	router.Use(middleware.Authenticate())

	api := router.Group("/api/v1")

	// Policy administration is itself policy-governed
	policyAPI := api.Group("", authorizer.Require("policy", "manage", middleware.AuthorizeOptions{}))
	controllers.Policy.RegisterRoutes(policyAPI)

	auditAPI := api.Group("", authorizer.Require("audit", "read", middleware.AuthorizeOptions{}))
	controllers.Audit.RegisterRoutes(auditAPI)

	return router
}
