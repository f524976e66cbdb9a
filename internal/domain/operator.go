package domain

// OperatorRole mirrors the roles issued by the authentication service.
type OperatorRole string

const (
	OperatorRoleAdmin  OperatorRole = "administrador"
	OperatorRoleClient OperatorRole = "cliente"
)

// Operator is the authenticated person driving an import.
type Operator struct {
	ID   string
	Name string
	Role OperatorRole
}
