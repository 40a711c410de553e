package domain

import "fmt"

// Role is the closed set of authorization roles an account can hold.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a raw role value. Unknown values are rejected here,
// at the account-creation boundary, not at authorization time.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
