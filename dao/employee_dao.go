// dao/employee_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	aegis_neo4j "github.com/workforcehq/aegis/model/neo4j"
)

// EmployeeDAO reads employee profiles for subject enrichment.
type EmployeeDAO struct {
	Driver neo4j.Driver
}

func NewEmployeeDAO(driver neo4j.Driver) *EmployeeDAO {
	return &EmployeeDAO{Driver: driver}
}

// GetEmployeeByUserID returns the employee profile linked to a user account.
func (dao *EmployeeDAO) GetEmployeeByUserID(ctx context.Context, userID string) (*model.Employee, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + aegis_neo4j.LabelUser + ` {id: $userId})<-[:` + aegis_neo4j.RelProfileOf + `]-(e:` + aegis_neo4j.LabelEmployee + `)
        RETURN e
        `
		records, err := tx.Run(query, map[string]interface{}{"userId": userID})
		if err != nil {
			return nil, err
		}
		if !records.Next() {
			return nil, aegis_errors.ErrEmployeeNotFound
		}
		return mapNodeToEmployee(records.Record().Values[0].(neo4j.Node))
	})
	if err != nil {
		if err == aegis_errors.ErrEmployeeNotFound {
			return nil, err
		}
		logger.Error("Failed to fetch employee profile",
			zap.Error(err),
			zap.String("userID", userID))
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrDatabaseOperation, err)
	}

	employee := result.(*model.Employee)
	if employee.UserID == "" {
		employee.UserID = userID
	}
	return employee, nil
}

func mapNodeToEmployee(node neo4j.Node) (*model.Employee, error) {
	props := node.Props
	employee := &model.Employee{}

	if id, ok := props["id"].(string); ok {
		employee.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for employee ID: %v", props["id"])
	}

	if userID, ok := props["userId"].(string); ok {
		employee.UserID = userID
	}

	if name, ok := props["name"].(string); ok {
		employee.Name = name
	}
	if email, ok := props["email"].(string); ok {
		employee.Email = email
	}
	if department, ok := props["department"].(string); ok {
		employee.Department = department
	}
	if designation, ok := props["designation"].(string); ok {
		employee.Designation = designation
	}
	if managerID, ok := props["managerId"].(string); ok {
		employee.ManagerID = managerID
	}
	if isActive, ok := props["isActive"].(bool); ok {
		employee.IsActive = isActive
	}

	employee.DateOfJoining = parseNullableTime(props["dateOfJoining"])

	if createdAt, ok := props["createdAt"].(string); ok {
		employee.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	}
	if updatedAt, ok := props["updatedAt"].(string); ok {
		employee.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	}

	return employee, nil
}
