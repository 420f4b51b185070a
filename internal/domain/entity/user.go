// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// UserStatus is the approval state of an account.
type UserStatus string

const (
	// UserStatusPending is the state of every freshly signed-up account.
	UserStatusPending UserStatus = "PENDING"
	// UserStatusApproved accounts may authenticate.
	UserStatusApproved UserStatus = "APPROVED"
	// UserStatusRejected is terminal.
	UserStatusRejected UserStatus = "REJECTED"
)

// ErrInvalidStatusTransition is returned when an approval action does not apply to the current status.
var ErrInvalidStatusTransition = errors.New("invalid user status transition")

// IsValid checks if the status is a known value.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusPending, UserStatusApproved, UserStatusRejected:
		return true
	default:
		return false
	}
}

// User is an account of the portal. A user belongs to at most one clinic (tenant),
// assigned by an administrator when the account is approved.
type User struct {
	ID           uuid.UUID   // Global unique identifier of the account.
	Email        string      // Login identifier, unique.
	PasswordHash string      // bcrypt hash of the password.
	Name         string      // Display name.
	Role         Role        // Authorization role.
	Status       UserStatus  // Approval state.
	ClinicID     *string     // Tenant reference, nil until approval.
	Permissions  Permissions // Capability tags granted on top of the role.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPendingUser builds the account created by signup: a USER awaiting approval with no tenant.
func NewPendingUser(email, passwordHash, name string) *User {
	return &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleUser,
		Status:       UserStatusPending,
		Permissions:  Permissions{},
	}
}

// IsApproved reports whether the account may hold valid tokens.
func (u *User) IsApproved() bool {
	return u.Status == UserStatusApproved
}

// ClinicIDValue returns the tenant id or an empty string.
func (u *User) ClinicIDValue() string {
	if u.ClinicID == nil {
		return ""
	}

	return *u.ClinicID
}

// Approve moves a PENDING account to APPROVED and assigns its tenant, role and permissions.
// When perms is empty the role defaults apply.
func (u *User) Approve(clinicID string, role Role, perms Permissions) error {
	if u.Status != UserStatusPending {
		return errors.Wrapf(ErrInvalidStatusTransition, "cannot approve %s user", u.Status)
	}
	if !role.IsValid() {
		return errors.Errorf("invalid role: %s", role)
	}
	if clinicID == "" {
		return errors.New("clinic id is required for approval")
	}

	if len(perms) == 0 {
		perms = role.DefaultPermissions()
	}

	u.Status = UserStatusApproved
	u.ClinicID = &clinicID
	u.Role = role
	u.Permissions = perms

	return nil
}

// Reject marks a PENDING or APPROVED account REJECTED. Rejecting an approved account revokes it.
// It returns true when the account was approved before.
func (u *User) Reject() (revoked bool, err error) {
	switch u.Status {
	case UserStatusPending:
		u.Status = UserStatusRejected

		return false, nil
	case UserStatusApproved:
		u.Status = UserStatusRejected

		return true, nil
	default:
		return false, errors.Wrapf(ErrInvalidStatusTransition, "cannot reject %s user", u.Status)
	}
}

// HasPermission reports whether the account holds the capability.
func (u *User) HasPermission(p Permission) bool {
	return u.Permissions.Contains(p)
}
