package enums

import "fmt"

// MemberRole identifies the privilege level carried by an access token.
type MemberRole string

const (
	MemberRoleStaff      MemberRole = "staff"
	MemberRoleAdmin      MemberRole = "admin"
	MemberRoleSuperAdmin MemberRole = "super_admin"
)

var validMemberRoles = []MemberRole{
	MemberRoleStaff,
	MemberRoleAdmin,
	MemberRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role may hit admin-facing mutation endpoints.
func (m MemberRole) IsAdmin() bool {
	return m == MemberRoleAdmin || m == MemberRoleSuperAdmin
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
