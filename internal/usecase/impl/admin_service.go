package impl

import (
	"context"
	"log/slog"

	deliverycontext "dbaportal/internal/delivery/context"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/domain/repository"
	"dbaportal/internal/domain/service"
	"dbaportal/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// adminService implements the AdminUsecase interface.
type adminService struct {
	txManager repository.TransactionManager
	userRepo  repository.UserRepository
	publisher service.EventPublisher
	logger    *slog.Logger
}

// AdminServiceParams holds dependencies for AdminService, injected by Fx.
type AdminServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	UserRepo  repository.UserRepository
	Publisher service.EventPublisher
	Logger    *slog.Logger
}

func NewAdminService(params AdminServiceParams) usecase.AdminUsecase {
	return &adminService{
		txManager: params.TxManager,
		userRepo:  params.UserRepo,
		publisher: params.Publisher,
		logger:    params.Logger,
	}
}

func (srv *adminService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListUsers lists accounts in a status visible to the actor; an empty status lists all of them.
func (srv *adminService) ListUsers(ctx context.Context, actor *entity.Identity, status entity.UserStatus) ([]*entity.User, error) {
	if status != "" && !status.IsValid() {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unknown status: " + string(status)))
	}

	users, err := srv.userRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	visible := users[:0]
	for _, user := range users {
		if actor.CanView(user) {
			visible = append(visible, user)
		}
	}

	return visible, nil
}

// Approve assigns tenant, role and permissions to a PENDING account.
func (srv *adminService) Approve(ctx context.Context, input *usecase.ApproveInput) (*entity.User, error) {
	var approved *entity.User
	err := srv.updateUser(ctx, input.UserID, func(_ repository.RepositoryFactory, user *entity.User) error {
		if err := input.Actor.CanApprove(input.ClinicID, input.Role, input.Permissions); err != nil {
			return errors.WithStack(domainerrors.ErrForbidden.WithDetails(err.Error()))
		}
		if err := user.Approve(input.ClinicID, input.Role, input.Permissions); err != nil {
			return mapTransitionError(err)
		}
		approved = user

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Approval failed", slog.Any("userID", input.UserID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to approve user")
	}

	srv.log(ctx).Info("User approved",
		slog.Any("userID", approved.ID),
		slog.String("clinicID", approved.ClinicIDValue()),
		slog.String("role", approved.Role.String()),
		slog.Any("actorID", input.Actor.UserID),
	)
	srv.publish(ctx, newAccountEvent(ctx, service.EventAccountApproved, approved, input.Actor.UserID))

	return approved, nil
}

// Reject closes a PENDING account or revokes an APPROVED one. Revocation deletes every
// refresh token of the account in the same transaction.
func (srv *adminService) Reject(ctx context.Context, input *usecase.RejectInput) (*entity.User, error) {
	var rejected *entity.User
	var revokedSessions int64
	err := srv.updateUser(ctx, input.UserID, func(repoFactory repository.RepositoryFactory, user *entity.User) error {
		if err := input.Actor.CanReject(user); err != nil {
			return errors.WithStack(domainerrors.ErrForbidden.WithDetails(err.Error()))
		}
		revoked, err := user.Reject()
		if err != nil {
			return mapTransitionError(err)
		}
		if revoked {
			revokedSessions, err = repoFactory.NewRefreshTokenRepository().DeleteRefreshTokensByUserID(ctx, user.ID)
			if err != nil {
				return errors.Wrap(err, "failed to revoke sessions")
			}
		}
		rejected = user

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Rejection failed", slog.Any("userID", input.UserID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to reject user")
	}

	srv.log(ctx).Info("User rejected",
		slog.Any("userID", rejected.ID),
		slog.Int64("revokedSessions", revokedSessions),
		slog.Any("actorID", input.Actor.UserID),
	)
	srv.publish(ctx, newAccountEvent(ctx, service.EventAccountRejected, rejected, input.Actor.UserID))

	return rejected, nil
}

// updateUser locks, mutates and saves a user inside one transaction, so concurrent
// approval actions on one account apply one after the other.
func (srv *adminService) updateUser(ctx context.Context, userID uuid.UUID, mutate func(repository.RepositoryFactory, *entity.User) error) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		user, err := userRepo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.WithStack(domainerrors.ErrUserNotFound)
			}

			return errors.Wrap(err, "failed to find user")
		}

		if err := mutate(repoFactory, user); err != nil {
			return err
		}

		if err := userRepo.Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to update user")
		}

		return nil
	})
}

func (srv *adminService) publish(ctx context.Context, event *service.AccountEvent) {
	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish account event", slog.String("type", event.Type), slog.Any("error", err))
	}
}

func mapTransitionError(err error) error {
	if errors.Is(err, entity.ErrInvalidStatusTransition) {
		return errors.WithStack(domainerrors.ErrInvalidStatusTransition.WithDetails(err.Error()))
	}

	return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
}
