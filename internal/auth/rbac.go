package auth

import "strings"

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleSuperAdmin):
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// ValidRole reports whether role names one of the stored roles exactly.
func ValidRole(role string) bool {
	switch Role(role) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func HasRole(role string, allowed ...Role) bool {
	if len(allowed) == 0 {
		return false
	}
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return HasRole(role, RoleAdmin, RoleSuperAdmin)
}
