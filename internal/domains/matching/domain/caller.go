package domain

import "strings"

// Role is the kind of organization acting on the engine.
type Role string

const (
	RoleDonor        Role = "donor"
	RoleRecipientOrg Role = "recipient-org"
	// RoleSystem is reserved for internal processes such as the stale-claim sweep.
	RoleSystem Role = "system"
)

// ParseRole validates a role value. "ngo" is accepted as a recipient-org alias.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleDonor, RoleRecipientOrg, RoleSystem:
		return r, nil
	case "ngo":
		return RoleRecipientOrg, nil
	default:
		return "", ErrInvalidCallerRole
	}
}

// Caller is the trusted identity supplied with every mutating operation.
type Caller struct {
	OrgID string
	Role  Role
}

// SystemCaller identifies internal maintenance processes.
func SystemCaller(name string) Caller {
	return Caller{OrgID: name, Role: RoleSystem}
}

// Validate checks that both identity fields are present.
func (c Caller) Validate() error {
	if strings.TrimSpace(c.OrgID) == "" {
		return ErrMissingCallerOrgID
	}
	if _, err := ParseRole(string(c.Role)); err != nil {
		return err
	}
	return nil
}

// IsSystem reports whether the caller is an internal process.
func (c Caller) IsSystem() bool {
	return c.Role == RoleSystem
}
