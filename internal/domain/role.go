package domain

import "fmt"

// Role is a closed enumeration of account roles with a total privilege
// order: customer < manager < admin.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// roleRank maps each role to its position in the privilege order. Unknown
// roles rank below every valid role.
var roleRank = map[Role]int{
	RoleCustomer: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

// ParseRole converts a stored role string into a Role, rejecting anything
// outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role sits at or above min in the privilege
// order. An invalid role is never AtLeast anything.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	mr, ok := roleRank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

func (r Role) String() string {
	return string(r)
}
