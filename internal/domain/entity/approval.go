package entity

import (
	"github.com/pkg/errors"
)

// ErrApprovalNotPermitted is returned when an actor is outside the scope it may administer.
var ErrApprovalNotPermitted = errors.New("approval not permitted")

// Rank orders roles from USER up to SUPER_ADMIN. Unknown roles rank below USER.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleTeamLeader:
		return 2
	case RoleManager:
		return 3
	case RoleAdmin:
		return 4
	case RoleSuperAdmin:
		return 5
	default:
		return 0
	}
}

// privilegedPermissions administer accounts and tenants; only SUPER_ADMIN grants them.
var privilegedPermissions = Permissions{PermissionUsersApprove, PermissionClinicManage}

// CanApprove checks that the actor may give a pending account this tenant, role and capabilities.
// SUPER_ADMIN may assign anything. Every other actor approves into its own clinic only, never
// assigns ADMIN, SUPER_ADMIN or a role above its own, and grants only non-privileged capabilities
// it holds itself.
func (i *Identity) CanApprove(clinicID string, role Role, perms Permissions) error {
	if i == nil {
		return errors.Wrap(ErrApprovalNotPermitted, "no actor")
	}
	if i.Role == RoleSuperAdmin {
		return nil
	}

	if i.ClinicID == "" || clinicID != i.ClinicID {
		return errors.Wrapf(ErrApprovalNotPermitted, "cannot approve into clinic %q", clinicID)
	}
	if role.IsAdmin() || role.Rank() > i.Role.Rank() {
		return errors.Wrapf(ErrApprovalNotPermitted, "cannot assign role %s", role)
	}

	if len(perms) == 0 {
		perms = role.DefaultPermissions()
	}
	for _, p := range perms {
		if privilegedPermissions.Contains(p) {
			return errors.Wrapf(ErrApprovalNotPermitted, "cannot grant %s", p)
		}
		if !i.Permissions.Contains(p) {
			return errors.Wrapf(ErrApprovalNotPermitted, "cannot grant %s without holding it", p)
		}
	}

	return nil
}

// CanReject checks that the actor may reject or revoke the account. SUPER_ADMIN may reject
// anyone but itself. Every other actor rejects pending accounts, or approved accounts of its own
// clinic that do not outrank it.
func (i *Identity) CanReject(target *User) error {
	if i == nil {
		return errors.Wrap(ErrApprovalNotPermitted, "no actor")
	}
	if target.ID == i.UserID {
		return errors.Wrap(ErrApprovalNotPermitted, "cannot reject own account")
	}
	if i.Role == RoleSuperAdmin || target.Status == UserStatusPending {
		return nil
	}

	if i.ClinicID == "" || target.ClinicIDValue() != i.ClinicID {
		return errors.Wrap(ErrApprovalNotPermitted, "account belongs to another clinic")
	}
	if target.Role.Rank() > i.Role.Rank() {
		return errors.Wrapf(ErrApprovalNotPermitted, "cannot revoke %s", target.Role)
	}

	return nil
}

// CanView reports whether the account is visible to the actor in the approval queue:
// pending accounts and accounts of the actor's clinic, or everything for SUPER_ADMIN.
func (i *Identity) CanView(u *User) bool {
	if i == nil {
		return false
	}
	if i.Role == RoleSuperAdmin || u.Status == UserStatusPending {
		return true
	}

	return i.ClinicID != "" && u.ClinicIDValue() == i.ClinicID
}
