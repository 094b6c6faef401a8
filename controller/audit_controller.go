// controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/workforcehq/aegis/audit"
	aegis_errors "github.com/workforcehq/aegis/errors"
	"github.com/workforcehq/aegis/util"
	helper_util "github.com/workforcehq/aegis/util/helper"
)

// AuditController exposes the read side of the audit trail. It never sits on
// the decision path.
type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	auditGroup := r.Group("/audit")
	{
		auditGroup.GET("/users/:id", ac.QueryByUser)
		auditGroup.GET("/denials", ac.QueryDenials)
	}
}

// QueryByUser returns the audit trail for one subject, newest first.
func (ac *AuditController) QueryByUser(c *gin.Context) {
	userID := c.Param("id")
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", aegis_errors.ErrInvalidPagination)
		return
	}

	entries, err := ac.auditService.QueryByUser(c, userID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit trail", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// QueryDenials returns denied decisions, optionally since a point in time.
func (ac *AuditController) QueryDenials(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := helper_util.ParseTime(raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid since parameter", aegis_errors.ErrInvalidAuditQuery)
			return
		}
		since = parsed
	}

	limit, _, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", aegis_errors.ErrInvalidPagination)
		return
	}

	entries, err := ac.auditService.QueryDenials(c, since, limit)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query denials", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
