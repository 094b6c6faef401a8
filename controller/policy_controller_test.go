// controller/policy_controller_test.go
package controller_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/workforcehq/aegis/controller"
	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	mock_service "github.com/workforcehq/aegis/test/mock"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupRouter(mockPolicyService *mock_service.MockPolicyService) *gin.Engine {
	r := gin.New()
	// Stand-in for the authentication middleware
	r.Use(func(c *gin.Context) {
		c.Set("userID", "test-user")
		c.Next()
	})
	policyController := controller.NewPolicyController(mockPolicyService)
	api := r.Group("/")
	policyController.RegisterRoutes(api)
	return r
}

func TestPolicyController(t *testing.T) {
	mockPolicyService := new(mock_service.MockPolicyService)
	router := setupRouter(mockPolicyService)

	validPolicy := `{
		"name": "Test Policy",
		"effect": "allow",
		"resource": "leave_request",
		"actions": ["read"]
	}`

	t.Run("CreatePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("CreatePolicy", tmock.Anything, tmock.Anything, "test-user").
			Return(&model.Policy{ID: "1", Name: "Test Policy"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", strings.NewReader(validPolicy))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreatePolicy_Failure_Conflict", func(t *testing.T) {
		mockPolicyService.On("CreatePolicy", tmock.Anything, tmock.Anything, "test-user").
			Return(nil, aegis_errors.ErrPolicyConflict).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", strings.NewReader(validPolicy))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("CreatePolicy_Failure_MissingFields", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", strings.NewReader(`{"name":"No Effect"}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UpdatePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("UpdatePolicy", tmock.Anything, tmock.Anything, "test-user").
			Return(&model.Policy{ID: "1", Name: "Updated Policy"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policies/1", strings.NewReader(validPolicy))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpdatePolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("UpdatePolicy", tmock.Anything, tmock.Anything, "test-user").
			Return(nil, aegis_errors.ErrPolicyNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policies/1", strings.NewReader(validPolicy))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("SetPolicyActive_Success", func(t *testing.T) {
		mockPolicyService.On("SetPolicyActive", tmock.Anything, "1", false).
			Return(&model.Policy{ID: "1", IsActive: false}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PATCH", "/policies/1/active", strings.NewReader(`{"is_active": false}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("SetPolicyActive_Failure_MissingBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PATCH", "/policies/1/active", strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DeletePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("DeletePolicy", tmock.Anything, "1", "test-user").
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policies/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("DeletePolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("DeletePolicy", tmock.Anything, "1", "test-user").
			Return(aegis_errors.ErrPolicyNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policies/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetPolicy_Success", func(t *testing.T) {
		mockPolicyService.On("GetPolicy", tmock.Anything, "1").
			Return(&model.Policy{ID: "1", Name: "Test Policy"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetPolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("GetPolicy", tmock.Anything, "1").
			Return(nil, aegis_errors.ErrPolicyNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListPolicies_Success", func(t *testing.T) {
		policies := []*model.Policy{
			{ID: "1", Name: "Policy 1"},
			{ID: "2", Name: "Policy 2"},
		}
		mockPolicyService.On("ListPolicies", tmock.Anything, tmock.Anything, tmock.Anything).
			Return(policies, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("BulkCreatePolicies_Success", func(t *testing.T) {
		mockPolicyService.On("BulkCreatePolicies", tmock.Anything, tmock.Anything, "test-user").
			Return([]string{"1", "2"}, nil).Once()

		body := `[
			{"name": "P1", "effect": "allow", "resource": "leave_request", "actions": ["read"]},
			{"name": "P2", "effect": "deny", "resource": "leave_request", "actions": ["delete"]}
		]`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies/bulk", strings.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	mockPolicyService.AssertExpectations(t)
}

func TestPolicyController_RequiresAuthenticatedUser(t *testing.T) {
	mockPolicyService := new(mock_service.MockPolicyService)
	r := gin.New()
	policyController := controller.NewPolicyController(mockPolicyService)
	api := r.Group("/")
	policyController.RegisterRoutes(api)

	body := `{"name": "P", "effect": "allow", "resource": "leave_request", "actions": ["read"]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/policies", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockPolicyService.AssertNotCalled(t, "CreatePolicy")
}
