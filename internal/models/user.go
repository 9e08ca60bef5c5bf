package models

import "fmt"

// Role represents a user's function within the organization.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleProjectManager Role = "Project Manager"
	RoleEngineer       Role = "Engineer"
	RoleTester         Role = "Tester/QA"
	RoleSupport        Role = "Support Staff"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleProjectManager, RoleEngineer, RoleTester, RoleSupport}

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleEngineer, RoleTester, RoleSupport:
		return true
	}
	return false
}

// ParseRole converts a string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}

// User represents a person who can report or be assigned issues.
// Users are immutable once created.
type User struct {
	ID     string
	Name   string
	Email  string
	Role   Role
	Avatar string // optional avatar reference
}
