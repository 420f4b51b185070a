package entity

// Role represents the authorization role of an account.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleManager    Role = "MANAGER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleTeamLeader, RoleManager, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role administers accounts.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// DefaultPermissions returns the capabilities granted on approval when none are given explicitly.
func (r Role) DefaultPermissions() Permissions {
	switch r {
	case RoleSuperAdmin:
		return AllPermissions()
	case RoleAdmin:
		return Permissions{
			PermissionRevenueRead, PermissionRevenueWrite,
			PermissionHRRead, PermissionHRWrite,
			PermissionInventoryRead, PermissionInventoryWrite,
			PermissionMarketingRead, PermissionMarketingWrite,
			PermissionClinicManage, PermissionUsersApprove,
		}
	case RoleManager:
		return Permissions{
			PermissionRevenueRead, PermissionRevenueWrite,
			PermissionHRRead,
			PermissionInventoryRead, PermissionInventoryWrite,
			PermissionMarketingRead, PermissionMarketingWrite,
		}
	case RoleTeamLeader:
		return Permissions{
			PermissionRevenueRead,
			PermissionHRRead,
			PermissionInventoryRead, PermissionInventoryWrite,
			PermissionMarketingRead,
		}
	default:
		return Permissions{PermissionInventoryRead}
	}
}

// ParseRole converts a string into a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	role := Role(s)

	return role, role.IsValid()
}
