package enums

import (
	"fmt"
	"strings"
)

// Role is the system role carried on a user and in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{RoleCustomer, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRole(value string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}
