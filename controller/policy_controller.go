// controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/workforcehq/aegis/errors"
	"github.com/workforcehq/aegis/model"
	"github.com/workforcehq/aegis/service"
	"github.com/workforcehq/aegis/util"
	helper_util "github.com/workforcehq/aegis/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.POST("/bulk", pc.BulkCreatePolicies)
		policies.PUT("/:id", pc.UpdatePolicy)
		policies.PATCH("/:id/active", pc.SetPolicyActive)
		policies.DELETE("/:id", pc.DeletePolicy)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("", pc.ListPolicies)
	}
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", aegis_errors.ErrInvalidPolicyData)
		return
	}
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policy", aegis_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// BulkCreatePolicies endpoint
func (pc *PolicyController) BulkCreatePolicies(c *gin.Context) {
	var policies []model.Policy
	if err := c.ShouldBindJSON(&policies); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", aegis_errors.ErrInvalidPolicyData)
		return
	}
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	ids, err := pc.policyService.BulkCreatePolicies(c, policies, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policies", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	policy.ID = policyID
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	updatedPolicy, err := pc.policyService.UpdatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// SetPolicyActive endpoint
func (pc *PolicyController) SetPolicyActive(c *gin.Context) {
	policyID := c.Param("id")

	var body struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updatedPolicy, err := pc.policyService.SetPolicyActive(c, policyID, *body.IsActive)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	policyID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", aegis_errors.ErrUnauthorized)
		return
	}

	if err := pc.policyService.DeletePolicy(c, policyID, userID); err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")

	policy, err := pc.policyService.GetPolicy(c, policyID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to get policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", aegis_errors.ErrInvalidPagination)
		return
	}

	policies, err := pc.policyService.ListPolicies(c, limit, offset)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrInvalidPagination) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"policies": policies,
		"limit":    strconv.Itoa(limit),
		"offset":   strconv.Itoa(offset),
	})
}
