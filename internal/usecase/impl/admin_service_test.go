package impl

import (
	"context"
	"testing"

	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/domain/service"
	"dbaportal/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSignupApproveLoginScenario(t *testing.T) {
	env := newTestEnv(t)
	env.expectEvents()
	ctx := context.Background()
	actor := superAdmin()

	signup, err := env.auth.Signup(ctx, &usecase.SignupInput{Email: "doc@clinic.kr", Password: "Password123!", Name: "Park"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, &usecase.LoginInput{Email: "doc@clinic.kr", Password: "Password123!"})
	require.ErrorIs(t, err, domainerrors.ErrAccountPending)

	approved, err := env.admin.Approve(ctx, &usecase.ApproveInput{
		Actor:    actor,
		UserID:   signup.User.ID,
		ClinicID: "clinic-7",
		Role:     entity.RoleTeamLeader,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusApproved, approved.Status)
	assert.Equal(t, entity.RoleTeamLeader.DefaultPermissions(), approved.Permissions)

	out, err := env.auth.Login(ctx, &usecase.LoginInput{Email: "doc@clinic.kr", Password: "Password123!"})
	require.NoError(t, err)

	identity, err := env.auth.Verify(ctx, out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "clinic-7", identity.ClinicID)
	assert.Equal(t, entity.RoleTeamLeader, identity.Role)

	env.publisher.AssertCalled(t, "PublishAccountEvent", mock.Anything, mock.MatchedBy(func(e *service.AccountEvent) bool {
		return e.Type == service.EventAccountApproved && e.ActorID == actor.UserID.String() && e.ClinicID == "clinic-7"
	}))
}

func TestAdminService_Approve_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	approved := env.seedUser(t, "ok@clinic.kr", entity.UserStatusApproved)
	pending := env.seedUser(t, "p@clinic.kr", entity.UserStatusPending)

	_, err := env.admin.Approve(ctx, &usecase.ApproveInput{Actor: superAdmin(), UserID: uuid.New(), ClinicID: "c", Role: entity.RoleUser})
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	_, err = env.admin.Approve(ctx, &usecase.ApproveInput{Actor: superAdmin(), UserID: approved.ID, ClinicID: "c", Role: entity.RoleUser})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)

	_, err = env.admin.Approve(ctx, &usecase.ApproveInput{Actor: superAdmin(), UserID: pending.ID, Role: entity.RoleUser})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed, "clinic is required")

	_, err = env.admin.Approve(ctx, &usecase.ApproveInput{Actor: superAdmin(), UserID: pending.ID, ClinicID: "c", Role: "OWNER"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	stored, err := env.store.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusPending, stored.Status)
	env.publisher.AssertNotCalled(t, "PublishAccountEvent", mock.Anything, mock.Anything)
}

func TestAdminService_Approve_ExplicitPermissions(t *testing.T) {
	env := newTestEnv(t)
	env.expectEvents()
	pending := env.seedUser(t, "p@clinic.kr", entity.UserStatusPending)

	perms := entity.Permissions{entity.PermissionRevenueRead}
	user, err := env.admin.Approve(context.Background(), &usecase.ApproveInput{
		Actor: superAdmin(), UserID: pending.ID, ClinicID: "c", Role: entity.RoleManager, Permissions: perms,
	})
	require.NoError(t, err)
	assert.Equal(t, perms, user.Permissions)
}

func TestAdminService_Reject(t *testing.T) {
	env := newTestEnv(t)
	env.expectEvents()
	ctx := context.Background()

	pending := env.seedUser(t, "p@clinic.kr", entity.UserStatusPending)
	user, err := env.admin.Reject(ctx, &usecase.RejectInput{Actor: superAdmin(), UserID: pending.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusRejected, user.Status)

	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: superAdmin(), UserID: pending.ID})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition, "rejected is terminal")
}

func TestAdminService_Reject_RevokesApprovedUser(t *testing.T) {
	env := newTestEnv(t)
	env.expectEvents()
	ctx := context.Background()

	approved := env.seedUser(t, "ok@clinic.kr", entity.UserStatusApproved)
	out := env.login(t, "ok@clinic.kr")
	env.login(t, "ok@clinic.kr")

	_, err := env.admin.Reject(ctx, &usecase.RejectInput{Actor: superAdmin(), UserID: approved.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, env.store.refreshCount())

	_, err = env.auth.Verify(ctx, out.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotApproved)

	_, err = env.auth.Refresh(ctx, &usecase.RefreshInput{RefreshToken: out.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenInvalid)
}

func TestAdminService_ListUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "a@clinic.kr", entity.UserStatusPending)
	env.seedUser(t, "b@clinic.kr", entity.UserStatusPending)
	env.seedUser(t, "c@clinic.kr", entity.UserStatusApproved)

	pending, err := env.admin.ListUsers(ctx, superAdmin(), entity.UserStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := env.admin.ListUsers(ctx, superAdmin(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = env.admin.ListUsers(ctx, superAdmin(), "ARCHIVED")
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	// approved accounts of other clinics are hidden from clinic approvers
	other, err := env.admin.ListUsers(ctx, clinicApprover("clinic-9", entity.RoleAdmin), "")
	require.NoError(t, err)
	assert.Len(t, other, 2)

	own, err := env.admin.ListUsers(ctx, clinicApprover("clinic-1", entity.RoleAdmin), "")
	require.NoError(t, err)
	assert.Len(t, own, 3)
}

func superAdmin() *entity.Identity {
	return &entity.Identity{UserID: uuid.New(), Role: entity.RoleSuperAdmin, Permissions: entity.AllPermissions()}
}

func clinicApprover(clinicID string, role entity.Role) *entity.Identity {
	perms := role.DefaultPermissions()
	if !perms.Contains(entity.PermissionUsersApprove) {
		perms = append(perms, entity.PermissionUsersApprove)
	}

	return &entity.Identity{UserID: uuid.New(), Role: role, ClinicID: clinicID, Permissions: perms}
}

func TestAdminService_Approve_ScopedToActor(t *testing.T) {
	leader := clinicApprover("clinic-1", entity.RoleTeamLeader)
	admin := clinicApprover("clinic-1", entity.RoleAdmin)

	tests := []struct {
		name  string
		actor *entity.Identity
		input usecase.ApproveInput
	}{
		{
			name:  "super admin role",
			actor: leader,
			input: usecase.ApproveInput{ClinicID: "clinic-1", Role: entity.RoleSuperAdmin},
		},
		{
			name:  "admin role by clinic admin",
			actor: admin,
			input: usecase.ApproveInput{ClinicID: "clinic-1", Role: entity.RoleAdmin},
		},
		{
			name:  "another clinic",
			actor: leader,
			input: usecase.ApproveInput{ClinicID: "clinic-9", Role: entity.RoleUser},
		},
		{
			name:  "role above the actor",
			actor: leader,
			input: usecase.ApproveInput{ClinicID: "clinic-1", Role: entity.RoleManager},
		},
		{
			name:  "approval capability",
			actor: admin,
			input: usecase.ApproveInput{
				ClinicID: "clinic-1", Role: entity.RoleUser,
				Permissions: entity.Permissions{entity.PermissionUsersApprove},
			},
		},
		{
			name:  "clinic management capability",
			actor: admin,
			input: usecase.ApproveInput{
				ClinicID: "clinic-1", Role: entity.RoleManager,
				Permissions: entity.Permissions{entity.PermissionClinicManage},
			},
		},
		{
			name:  "capability the actor lacks",
			actor: leader,
			input: usecase.ApproveInput{
				ClinicID: "clinic-1", Role: entity.RoleUser,
				Permissions: entity.Permissions{entity.PermissionRevenueWrite},
			},
		},
		{
			name:  "actor without a clinic",
			actor: &entity.Identity{UserID: uuid.New(), Role: entity.RoleAdmin, Permissions: entity.RoleAdmin.DefaultPermissions()},
			input: usecase.ApproveInput{ClinicID: "", Role: entity.RoleUser},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			pending := env.seedUser(t, "p@clinic.kr", entity.UserStatusPending)

			input := tt.input
			input.Actor = tt.actor
			input.UserID = pending.ID

			_, err := env.admin.Approve(ctx, &input)
			require.ErrorIs(t, err, domainerrors.ErrForbidden)

			var appErr domainerrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, 403, appErr.HTTPCode())

			stored, err := env.store.FindByID(ctx, pending.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.UserStatusPending, stored.Status)
			env.publisher.AssertNotCalled(t, "PublishAccountEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestAdminService_Approve_WithinScope(t *testing.T) {
	env := newTestEnv(t)
	env.expectEvents()
	pending := env.seedUser(t, "p@clinic.kr", entity.UserStatusPending)

	user, err := env.admin.Approve(context.Background(), &usecase.ApproveInput{
		Actor:    clinicApprover("clinic-1", entity.RoleTeamLeader),
		UserID:   pending.ID,
		ClinicID: "clinic-1",
		Role:     entity.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "clinic-1", user.ClinicIDValue())
	assert.Equal(t, entity.RoleUser.DefaultPermissions(), user.Permissions)
}

func TestAdminService_Reject_ScopedToActor(t *testing.T) {
	env := newTestEnv(t)
	env.expectEvents()
	ctx := context.Background()

	// seeded approved accounts are MANAGERs of clinic-1
	approved := env.seedUser(t, "m@clinic.kr", entity.UserStatusApproved)
	pending := env.seedUser(t, "p@clinic.kr", entity.UserStatusPending)
	super := env.seedUser(t, "s@clinic.kr", entity.UserStatusPending)
	stored, err := env.store.FindByID(ctx, super.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Approve("clinic-1", entity.RoleSuperAdmin, nil))
	require.NoError(t, env.store.Update(ctx, stored))

	clinicAdmin := clinicApprover("clinic-1", entity.RoleAdmin)
	leader := clinicApprover("clinic-1", entity.RoleTeamLeader)

	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: clinicAdmin, UserID: super.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden, "admin cannot revoke a super admin")

	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: clinicApprover("clinic-9", entity.RoleAdmin), UserID: approved.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden, "another clinic")

	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: leader, UserID: approved.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden, "manager outranks team leader")

	self := &entity.Identity{UserID: super.ID, Role: entity.RoleSuperAdmin}
	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: self, UserID: super.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden, "own account")

	for _, id := range []uuid.UUID{approved.ID, super.ID} {
		u, err := env.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.UserStatusApproved, u.Status)
	}

	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: leader, UserID: pending.ID})
	require.NoError(t, err, "pending accounts belong to no clinic yet")

	_, err = env.admin.Reject(ctx, &usecase.RejectInput{Actor: clinicAdmin, UserID: approved.ID})
	require.NoError(t, err)
}
