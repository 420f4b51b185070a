package usecase

import (
	"context"

	"dbaportal/internal/domain/entity"

	"github.com/google/uuid"
)

// ApproveInput assigns the tenant and authorization of a pending account.
type ApproveInput struct {
	Actor       *entity.Identity
	UserID      uuid.UUID
	ClinicID    string
	Role        entity.Role
	Permissions entity.Permissions // Empty means the defaults of Role.
}

// RejectInput rejects a pending account or revokes an approved one.
type RejectInput struct {
	Actor  *entity.Identity
	UserID uuid.UUID
}

// AdminUsecase defines the account approval workflow. Every operation is scoped to what the
// acting identity may administer and fails with ErrForbidden outside it.
type AdminUsecase interface {
	ListUsers(ctx context.Context, actor *entity.Identity, status entity.UserStatus) ([]*entity.User, error)
	Approve(ctx context.Context, input *ApproveInput) (*entity.User, error)
	Reject(ctx context.Context, input *RejectInput) (*entity.User, error)
}
