package model

import aegis_model "github.com/workforcehq/aegis/model"

// Decision is the outcome of one evaluation. Policy is nil for a
// default-deny.
type Decision struct {
	Allowed bool                `json:"allowed"`
	Policy  *aegis_model.Policy `json:"policy,omitempty"`
	Reason  string              `json:"reason"`
}
