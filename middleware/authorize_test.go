// middleware/authorize_test.go
package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/middleware"
	"github.com/workforcehq/aegis/model"
	"github.com/workforcehq/aegis/pdp/engine"
	mock_store "github.com/workforcehq/aegis/test/mock"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthorizedRouter(policies []*model.Policy, storeErr error, claims map[string]string, options middleware.AuthorizeOptions) *gin.Engine {
	store := new(mock_store.MockPolicyStore)
	store.On("FindActivePolicies", tmock.Anything, tmock.Anything).Return(policies, storeErr)

	sink := new(mock_store.MockAuditSink)
	sink.On("Record", tmock.Anything).Return()

	cache := engine.NewPolicyCache(store, 5*time.Minute)
	evaluator := engine.NewPolicyEvaluator(cache, engine.NewConditionEvaluator(), sink)

	// Admin subjects skip profile enrichment, so no employee store is needed
	authorizer := middleware.NewAuthorizer(evaluator, nil, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		for key, value := range claims {
			c.Set(key, value)
		}
		c.Next()
	})
	r.GET("/reports", authorizer.Require("report", "read", options), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func adminClaims() map[string]string {
	return map[string]string{"userID": "admin-1", "role": "admin", "email": "admin@corp.test"}
}

func TestRequire_AllowsMatchingSubject(t *testing.T) {
	policies := []*model.Policy{{
		ID:       "p1",
		Name:     "admin-reports",
		Effect:   model.EffectAllow,
		Priority: 100,
		Subject:  model.PolicySubject{Roles: []string{"admin"}},
		Resource: "report",
		Actions:  []string{"read"},
	}}
	router := newAuthorizedRouter(policies, nil, adminClaims(), middleware.AuthorizeOptions{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/reports", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequire_DeniesWithoutMatchingPolicy(t *testing.T) {
	router := newAuthorizedRouter(nil, nil, adminClaims(), middleware.AuthorizeOptions{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/reports", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), engine.DefaultDenyReason)
}

func TestRequire_RejectsUnauthenticatedRequest(t *testing.T) {
	router := newAuthorizedRouter(nil, nil, map[string]string{}, middleware.AuthorizeOptions{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/reports", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequire_PolicyLoadFailureIsSystemError(t *testing.T) {
	router := newAuthorizedRouter(nil, errors.New("neo4j unavailable"), adminClaims(), middleware.AuthorizeOptions{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/reports", nil)
	router.ServeHTTP(w, req)

	// Never mapped to 403: with no policy data there is no safe decision
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequire_ResourceLoaderFeedsConditions(t *testing.T) {
	policies := []*model.Policy{{
		ID:       "p1",
		Name:     "own-report",
		Effect:   model.EffectAllow,
		Priority: 100,
		Subject:  model.PolicySubject{Roles: []string{"admin"}},
		Resource: "report",
		Actions:  []string{"read"},
		Conditions: []model.Condition{{
			Type:        model.ConditionOwnership,
			Field:       "ownerId",
			ValueSource: "subject.userId",
		}},
	}}

	t.Run("owned resource allowed", func(t *testing.T) {
		options := middleware.AuthorizeOptions{
			ResourceLoader: func(c *gin.Context) (map[string]interface{}, error) {
				return map[string]interface{}{"ownerId": "admin-1"}, nil
			},
		}
		router := newAuthorizedRouter(policies, nil, adminClaims(), options)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/reports", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("foreign resource denied", func(t *testing.T) {
		options := middleware.AuthorizeOptions{
			ResourceLoader: func(c *gin.Context) (map[string]interface{}, error) {
				return map[string]interface{}{"ownerId": "someone-else"}, nil
			},
		}
		router := newAuthorizedRouter(policies, nil, adminClaims(), options)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/reports", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("loader failure is a system error", func(t *testing.T) {
		options := middleware.AuthorizeOptions{
			ResourceLoader: func(c *gin.Context) (map[string]interface{}, error) {
				return nil, errors.New("lookup failed")
			},
		}
		router := newAuthorizedRouter(policies, nil, adminClaims(), options)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/reports", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
