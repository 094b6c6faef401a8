// model/neo4j/nodes.go
package aegis_neo4j

// Node Labels
const (
	// LabelPolicy represents an access control policy
	LabelPolicy = "Policy"

	// LabelEmployee represents an employee profile used for subject enrichment
	LabelEmployee = "Employee"

	// LabelUser represents an authenticated user account
	LabelUser = "User"
)
