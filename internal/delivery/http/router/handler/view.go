package handler

import (
	"time"

	"dbaportal/internal/domain/entity"
)

// UserView is the public projection of an account. The password hash never leaves the service.
type UserView struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Role        entity.Role       `json:"role"`
	Status      entity.UserStatus `json:"status"`
	ClinicID    *string           `json:"clinicId"`
	Permissions []string          `json:"permissions"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func newUserView(u *entity.User) *UserView {
	return &UserView{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Status:      u.Status,
		ClinicID:    u.ClinicID,
		Permissions: u.Permissions.ToStrings(),
		CreatedAt:   u.CreatedAt,
	}
}

func newUserViews(users []*entity.User) []*UserView {
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}

	return views
}

// IdentityView is the verify response the gateway turns into x-user-* headers.
type IdentityView struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Role        entity.Role `json:"role"`
	ClinicID    string      `json:"clinicId"`
	Permissions []string    `json:"permissions"`
}

func newIdentityView(i *entity.Identity) *IdentityView {
	return &IdentityView{
		UserID:      i.UserID.String(),
		Email:       i.Email,
		Name:        i.Name,
		Role:        i.Role,
		ClinicID:    i.ClinicID,
		Permissions: i.Permissions.ToStrings(),
	}
}

// SessionView describes one stored refresh token.
type SessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenView is returned by login and refresh for clients that cannot use cookies.
type TokenView struct {
	AccessToken string    `json:"accessToken"`
	User        *UserView `json:"user"`
}
