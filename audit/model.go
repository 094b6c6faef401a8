// audit/model.go
package audit

import (
	"time"
)

// DefaultDenyPolicyName is recorded when no policy matched and the engine
// fell through to the default deny.
const DefaultDenyPolicyName = "DEFAULT_DENY"

// Entry is an immutable record of one access decision. Retention is handled
// by the storage backend (ILM policy on the audit index).
type Entry struct {
	SubjectID   string                 `json:"subject_id"`
	SubjectRole string                 `json:"subject_role"`
	Resource    string                 `json:"resource"`
	Action      string                 `json:"action"`
	Decision    string                 `json:"decision"` // "allow" or "deny"
	PolicyID    string                 `json:"policy_id,omitempty"`
	PolicyName  string                 `json:"policy_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	IPAddress   string                 `json:"ip_address,omitempty"`
	UserAgent   string                 `json:"user_agent,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}
