// model/employee.go
package model

import "time"

// Employee is the profile record used to enrich an authenticated user into a
// full subject (department, tenure) before policy evaluation.
type Employee struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Department    string     `json:"department"`
	Designation   string     `json:"designation,omitempty"`
	DateOfJoining *time.Time `json:"date_of_joining,omitempty"`
	ManagerID     string     `json:"manager_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
