// controller/controllers.go
package controller

import (
	"github.com/workforcehq/aegis/audit"
	"github.com/workforcehq/aegis/service"
)

// Controllers groups the HTTP controllers for route registration.
type Controllers struct {
	Policy *PolicyController
	Audit  *AuditController
}

func InitializeControllers(policyService service.IPolicyService, auditService audit.Service) *Controllers {
	return &Controllers{
		Policy: NewPolicyController(policyService),
		Audit:  NewAuditController(auditService),
	}
}
