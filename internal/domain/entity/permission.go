package entity

import (
	"slices"
	"strings"
)

// Permission is a capability tag. The set is closed; unknown tags are never represented.
type Permission string

const (
	PermissionRevenueRead    Permission = "revenue:read"
	PermissionRevenueWrite   Permission = "revenue:write"
	PermissionHRRead         Permission = "hr:read"
	PermissionHRWrite        Permission = "hr:write"
	PermissionInventoryRead  Permission = "inventory:read"
	PermissionInventoryWrite Permission = "inventory:write"
	PermissionMarketingRead  Permission = "marketing:read"
	PermissionMarketingWrite Permission = "marketing:write"
	PermissionClinicManage   Permission = "clinic:manage"
	PermissionUsersApprove   Permission = "users:approve"
)

//nolint:gochecknoglobals
var allPermissions = []Permission{
	PermissionRevenueRead, PermissionRevenueWrite,
	PermissionHRRead, PermissionHRWrite,
	PermissionInventoryRead, PermissionInventoryWrite,
	PermissionMarketingRead, PermissionMarketingWrite,
	PermissionClinicManage, PermissionUsersApprove,
}

// AllPermissions returns every known capability.
func AllPermissions() Permissions {
	return slices.Clone(allPermissions)
}

// String returns the string representation of the Permission.
func (p Permission) String() string {
	return string(p)
}

// IsValid checks if the Permission is a known capability.
func (p Permission) IsValid() bool {
	return slices.Contains(allPermissions, p)
}

// Permissions is a deduplicated list of capabilities.
type Permissions []Permission

// Contains checks if the set holds a specific capability.
func (ps Permissions) Contains(p Permission) bool {
	return slices.Contains(ps, p)
}

// ToStrings converts Permissions to []string for JWT and storage compatibility.
func (ps Permissions) ToStrings() []string {
	result := make([]string, len(ps))
	for i, p := range ps {
		result[i] = p.String()
	}

	return result
}

// Join renders the comma-joined header form.
func (ps Permissions) Join() string {
	return strings.Join(ps.ToStrings(), ",")
}

// PermissionsFromStrings converts []string to Permissions, dropping unknown and duplicate tags.
func PermissionsFromStrings(ss []string) Permissions {
	result := make(Permissions, 0, len(ss))
	for _, s := range ss {
		p := Permission(strings.TrimSpace(s))
		if p.IsValid() && !result.Contains(p) {
			result = append(result, p)
		}
	}

	return result
}

// ParsePermissions parses the comma-joined header form.
func ParsePermissions(header string) Permissions {
	if header == "" {
		return Permissions{}
	}

	return PermissionsFromStrings(strings.Split(header, ","))
}
