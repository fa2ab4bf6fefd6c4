package models

// Role is the access level of a user account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AllRoles is the whitelist of assignable roles
var AllRoles = map[Role]bool{
	RoleUser:  true,
	RoleAdmin: true,
}

// IsValidRole checks if a role exists in the whitelist
func IsValidRole(role string) bool {
	return AllRoles[Role(role)]
}

// CanAssignRole checks if an actor with the given role may change another account's role
func CanAssignRole(actor Role) bool {
	return actor == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
