// middleware/authorize.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/workforcehq/aegis/dao"
	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	"github.com/workforcehq/aegis/pdp/engine"
	pdp_model "github.com/workforcehq/aegis/pdp/model"
	"github.com/workforcehq/aegis/util"
)

// ResourceLoader fetches the concrete resource instance needed for condition
// evaluation (e.g. one leave request with its owning employee).
type ResourceLoader func(c *gin.Context) (map[string]interface{}, error)

// AuthorizeOptions tune one authorization check.
type AuthorizeOptions struct {
	ResourceLoader ResourceLoader
}

// Authorizer is the gin-facing boundary of the decision engine.
type Authorizer struct {
	evaluator   *engine.PolicyEvaluator
	employeeDAO *dao.EmployeeDAO
	cache       *util.CacheService
}

func NewAuthorizer(evaluator *engine.PolicyEvaluator, employeeDAO *dao.EmployeeDAO, cache *util.CacheService) *Authorizer {
	return &Authorizer{
		evaluator:   evaluator,
		employeeDAO: employeeDAO,
		cache:       cache,
	}
}

// Require returns a middleware enforcing (resource, action) for the
// authenticated principal.
//
// Usage:
//
//	api.GET("/employees", authorizer.Require("employee", "list", middleware.AuthorizeOptions{}))
func (a *Authorizer) Require(resource, action string, options AuthorizeOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := util.GetUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		subject, err := a.buildSubject(c, userID)
		if err != nil {
			logger.Error("Failed to build subject", zap.Error(err), zap.String("userID", userID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authorization system error"})
			c.Abort()
			return
		}

		evalCtx := &pdp_model.EvaluationContext{
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			ResourceID: resourceIDFromRoute(c),
		}
		if options.ResourceLoader != nil {
			resourceData, err := options.ResourceLoader(c)
			if err != nil {
				logger.Error("Resource loader failed",
					zap.Error(err),
					zap.String("resource", resource),
					zap.String("action", action))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Authorization system error"})
				c.Abort()
				return
			}
			evalCtx.ResourceData = resourceData
		}

		decision, err := a.evaluator.Evaluate(c.Request.Context(), subject, resource, action, evalCtx)
		if err != nil {
			// A policy load failure is a system error, never a deny
			logger.Error("Policy evaluation failed",
				zap.Error(err),
				zap.String("resource", resource),
				zap.String("action", action))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authorization system error"})
			c.Abort()
			return
		}

		if !decision.Allowed {
			_ = c.Error(aegis_errors.ErrAccessDenied)
			c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason})
			c.Abort()
			return
		}

		c.Set("accessSubject", subject)
		c.Set("accessDecision", decision)
		c.Next()
	}
}

// buildSubject enriches the authenticated principal with employee profile
// attributes. Admins skip enrichment; a user without a profile is evaluated
// with the bare claims.
func (a *Authorizer) buildSubject(c *gin.Context, userID string) (pdp_model.Subject, error) {
	subject := pdp_model.Subject{
		UserID: userID,
		Role:   c.GetString("role"),
		Email:  c.GetString("email"),
	}

	if subject.Role == "admin" {
		return subject, nil
	}

	employee, err := a.lookupEmployee(c.Request.Context(), userID)
	if err != nil {
		if err == aegis_errors.ErrEmployeeNotFound {
			return subject, nil
		}
		return subject, err
	}

	subject.EmployeeID = employee.ID
	subject.Department = employee.Department
	subject.DateOfJoining = employee.DateOfJoining
	return subject, nil
}

func (a *Authorizer) lookupEmployee(ctx context.Context, userID string) (*model.Employee, error) {
	if cached, err := a.cache.GetEmployee(ctx, userID); err == nil && cached != nil {
		return cached, nil
	}

	employee, err := a.employeeDAO.GetEmployeeByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := a.cache.SetEmployee(ctx, *employee); err != nil {
		logger.Warn("Failed to cache employee profile", zap.Error(err), zap.String("userID", userID))
	}
	return employee, nil
}

func resourceIDFromRoute(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Param("employeeId")
}
