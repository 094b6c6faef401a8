// model/neo4j/relationships.go
package aegis_neo4j

// Relationship Types
const (
	// RelProfileOf represents the relationship between an employee profile and its user account
	RelProfileOf = "PROFILE_OF"

	// RelCreatedBy represents the relationship between a policy and the user that authored it
	RelCreatedBy = "CREATED_BY"
)
