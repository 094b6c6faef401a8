// errors/access_errors.go
package errors

import "errors"

var (
	ErrAccessDenied      = errors.New("access denied")
	ErrPolicyLoadFailed  = errors.New("failed to load policies")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrInvalidAuditQuery = errors.New("invalid audit query parameters")
	ErrAuthTokenMissing  = errors.New("authorization token missing")
	ErrAuthTokenInvalid  = errors.New("authorization token invalid")
)
