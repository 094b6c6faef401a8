package model

import "time"

// Subject is the enriched principal under evaluation. It is built fresh per
// request by the authentication layer and treated as read-only by the engine.
type Subject struct {
	UserID        string                 `json:"user_id"`
	Role          string                 `json:"role"`
	Email         string                 `json:"email,omitempty"`
	EmployeeID    string                 `json:"employee_id,omitempty"`
	Department    string                 `json:"department,omitempty"`
	DateOfJoining *time.Time             `json:"date_of_joining,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
}

// AsMap exposes the subject as a generic tree for dot-path resolution in
// condition handlers. Extra attributes are merged in without overriding the
// typed fields.
func (s Subject) AsMap() map[string]interface{} {
	m := make(map[string]interface{}, len(s.Attributes)+6)
	for k, v := range s.Attributes {
		m[k] = v
	}
	m["userId"] = s.UserID
	m["role"] = s.Role
	if s.Email != "" {
		m["email"] = s.Email
	}
	if s.EmployeeID != "" {
		m["employeeId"] = s.EmployeeID
	}
	if s.Department != "" {
		m["department"] = s.Department
	}
	if s.DateOfJoining != nil {
		m["dateOfJoining"] = s.DateOfJoining.Format(time.RFC3339)
	}
	return m
}

// EvaluationContext carries per-call runtime data. ResourceData is the
// concrete resource instance (e.g. one leave request) or nil when the check
// is not about a specific instance.
type EvaluationContext struct {
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	ResourceData map[string]interface{} `json:"resource_data,omitempty"`
}
