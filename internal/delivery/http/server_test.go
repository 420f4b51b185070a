package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"dbaportal/config"
	"dbaportal/internal/delivery/http/cookie"
	"dbaportal/internal/delivery/http/router"
	"dbaportal/internal/delivery/http/router/handler"
	"dbaportal/internal/delivery/identity"
	"dbaportal/internal/domain/entity"
	domainerrors "dbaportal/internal/domain/errors"
	"dbaportal/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testInternalToken = "internal-secret"

type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Signup(ctx context.Context, input *usecase.SignupInput) (*usecase.SignupOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SignupOutput)
	return out, args.Error(1)
}

func (m *mockAuthUsecase) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.TokenOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.TokenOutput)
	return out, args.Error(1)
}

func (m *mockAuthUsecase) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.TokenOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.TokenOutput)
	return out, args.Error(1)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAuthUsecase) Verify(ctx context.Context, accessToken string) (*entity.Identity, error) {
	args := m.Called(ctx, accessToken)
	out, _ := args.Get(0).(*entity.Identity)
	return out, args.Error(1)
}

func (m *mockAuthUsecase) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*entity.User)
	return out, args.Error(1)
}

func (m *mockAuthUsecase) ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]*entity.RefreshToken)
	return out, args.Error(1)
}

func (m *mockAuthUsecase) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return m.Called(ctx, userID, sessionID).Error(0)
}

func (m *mockAuthUsecase) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockAdminUsecase struct {
	mock.Mock
}

func (m *mockAdminUsecase) ListUsers(ctx context.Context, actor *entity.Identity, status entity.UserStatus) ([]*entity.User, error) {
	args := m.Called(ctx, actor, status)
	out, _ := args.Get(0).([]*entity.User)
	return out, args.Error(1)
}

func (m *mockAdminUsecase) Approve(ctx context.Context, input *usecase.ApproveInput) (*entity.User, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*entity.User)
	return out, args.Error(1)
}

func (m *mockAdminUsecase) Reject(ctx context.Context, input *usecase.RejectInput) (*entity.User, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*entity.User)
	return out, args.Error(1)
}

type mockOAuthUsecase struct {
	mock.Mock
}

func (m *mockOAuthUsecase) RegisterClient(ctx context.Context, input *usecase.RegisterClientInput) (*usecase.RegisterClientOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.RegisterClientOutput)
	return out, args.Error(1)
}

func (m *mockOAuthUsecase) Authorize(ctx context.Context, input *usecase.AuthorizeInput) (*usecase.AuthorizeOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.AuthorizeOutput)
	return out, args.Error(1)
}

func (m *mockOAuthUsecase) Token(ctx context.Context, input *usecase.TokenInput) (*usecase.OAuthTokenOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.OAuthTokenOutput)
	return out, args.Error(1)
}

func (m *mockOAuthUsecase) UserInfo(ctx context.Context, accessToken string) (*usecase.UserInfo, error) {
	args := m.Called(ctx, accessToken)
	out, _ := args.Get(0).(*usecase.UserInfo)
	return out, args.Error(1)
}

func (m *mockOAuthUsecase) Revoke(ctx context.Context, input *usecase.RevokeInput) error {
	return m.Called(ctx, input).Error(0)
}

type testServer struct {
	echo  *echo.Echo
	auth  *mockAuthUsecase
	admin *mockAdminUsecase
	oauth *mockOAuthUsecase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Auth: &config.AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			InternalToken:   testInternalToken,
		},
		Cookie: &config.CookieConfig{},
	}
	cfg.HTTP.MaxRequestBodySize = "100KB"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := &testServer{
		auth:  &mockAuthUsecase{},
		admin: &mockAdminUsecase{},
		oauth: &mockOAuthUsecase{},
	}
	t.Cleanup(func() {
		ts.auth.AssertExpectations(t)
		ts.admin.AssertExpectations(t)
		ts.oauth.AssertExpectations(t)
	})

	ts.echo = NewEcho(cfg, logger)
	router.NewRouter(router.RouterParams{
		AuthHandler: handler.NewAuthHandler(handler.AuthHandlerParams{
			AuthUC:  ts.auth,
			Cookies: cookie.NewManager(cfg),
			Logger:  logger,
		}),
		AdminHandler: handler.NewAdminHandler(handler.AdminHandlerParams{
			AdminUC: ts.admin,
			OAuthUC: ts.oauth,
			Logger:  logger,
		}),
		OAuthHandler: handler.NewOAuthHandler(handler.OAuthHandlerParams{
			OAuthUC: ts.oauth,
			Logger:  logger,
		}),
		Config: cfg,
	}).RegisterRoutes(ts.echo)

	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	return rec
}

// gatewayRequest carries the internal token and, when caller is set, the identity headers.
func gatewayRequest(method, target, body string, caller *entity.Identity) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(identity.HeaderInternalToken, testInternalToken)
	if caller != nil {
		req.Header.Set(identity.HeaderUserID, caller.UserID.String())
		req.Header.Set(identity.HeaderClinicID, caller.ClinicID)
		req.Header.Set(identity.HeaderUserRole, string(caller.Role))
		req.Header.Set(identity.HeaderUserEmail, caller.Email)
		req.Header.Set(identity.HeaderUserName, identity.EncodeName(caller.Name))
		req.Header.Set(identity.HeaderPermissions, caller.Permissions.Join())
	}

	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domainerrors.ErrorResponse {
	t.Helper()

	var body domainerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func approvedUser() *entity.User {
	clinic := "clinic-1"

	return &entity.User{
		ID:           uuid.New(),
		Email:        "kim@example.com",
		PasswordHash: "$2a$12$secret",
		Name:         "Kim",
		Role:         entity.RoleUser,
		Status:       entity.UserStatusApproved,
		ClinicID:     &clinic,
		Permissions:  entity.Permissions{entity.PermissionInventoryRead},
	}
}

func cookiesOf(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck
	}

	return cookies
}

func TestLogin_SetsCookies(t *testing.T) {
	ts := newTestServer(t)
	user := approvedUser()
	ts.auth.On("Login", mock.Anything, &usecase.LoginInput{Email: "kim@example.com", Password: "Password123!"}).
		Return(&usecase.TokenOutput{AccessToken: "access", RefreshToken: "refresh", User: user}, nil)

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/login", `{"email":"kim@example.com","password":"Password123!"}`, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := cookiesOf(rec)
	assert.Equal(t, "access", cookies[cookie.AccessTokenName].Value)
	assert.Equal(t, "refresh", cookies[cookie.RefreshTokenName].Value)
	assert.NotContains(t, rec.Body.String(), user.PasswordHash)
	assert.NotContains(t, rec.Body.String(), `"refresh"`)
	assert.Contains(t, rec.Body.String(), `"accessToken":"access"`)
}

func TestLogin_PendingSetsNoCookies(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.On("Login", mock.Anything, mock.Anything).Return(nil, errors.WithStack(domainerrors.ErrAccountPending))

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"pw12345678"}`, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	body := decodeError(t, rec)
	assert.Equal(t, "ACCOUNT_PENDING", body.Error)
	assert.Equal(t, domainerrors.MessageAccountPending, body.Message)
}

func TestInternalTokenRequired(t *testing.T) {
	ts := newTestServer(t)

	req := gatewayRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"x"}`, nil)
	req.Header.Del(identity.HeaderInternalToken)
	rec := ts.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_INTERNAL_TOKEN", decodeError(t, rec).Error)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignup_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/signup", `{"email":"not-an-email","password":"short","name":""}`, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, rec).Error)
	ts.auth.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
}

func TestSignup_CreatesPendingAccount(t *testing.T) {
	ts := newTestServer(t)
	pending := entity.NewPendingUser("a@b.com", "hash", "Kim")
	ts.auth.On("Signup", mock.Anything, &usecase.SignupInput{Email: "a@b.com", Password: "pw12345678", Name: "Kim"}).
		Return(&usecase.SignupOutput{User: pending}, nil)

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/signup", `{"email":"a@b.com","password":"pw12345678","name":"Kim"}`, nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)
}

func TestRefresh_FromCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.On("Refresh", mock.Anything, &usecase.RefreshInput{RefreshToken: "old"}).
		Return(&usecase.TokenOutput{AccessToken: "access-2", RefreshToken: "refresh-2", User: approvedUser()}, nil)

	req := gatewayRequest(http.MethodPost, "/api/auth/refresh", "", nil)
	req.AddCookie(&http.Cookie{Name: cookie.RefreshTokenName, Value: "old"})
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refresh-2", cookiesOf(rec)[cookie.RefreshTokenName].Value)
}

func TestRefresh_FailureClearsCookies(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.On("Refresh", mock.Anything, mock.Anything).Return(nil, errors.WithStack(domainerrors.ErrInvalidGrant))

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"reused"}`, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_grant", decodeError(t, rec).Error)
	cookies := cookiesOf(rec)
	require.Contains(t, cookies, cookie.RefreshTokenName)
	assert.Equal(t, -1, cookies[cookie.RefreshTokenName].MaxAge)
}

func TestRefresh_Missing(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/refresh", "", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "REFRESH_TOKEN_MISSING", decodeError(t, rec).Error)
}

func TestLogout_AllSessionsOfCaller(t *testing.T) {
	ts := newTestServer(t)
	caller := entity.IdentityOf(approvedUser())
	ts.auth.On("Logout", mock.Anything, &usecase.LogoutInput{UserID: caller.UserID}).Return(nil)

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/logout", "", caller))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := cookiesOf(rec)
	assert.Equal(t, -1, cookies[cookie.AccessTokenName].MaxAge)
	assert.Equal(t, -1, cookies[cookie.RefreshTokenName].MaxAge)
}

func TestVerify(t *testing.T) {
	ts := newTestServer(t)
	verified := entity.IdentityOf(approvedUser())
	ts.auth.On("Verify", mock.Anything, "jwt").Return(verified, nil)
	ts.auth.On("Verify", mock.Anything, "").Return(nil, errors.WithStack(domainerrors.ErrTokenMissing))

	req := gatewayRequest(http.MethodGet, "/api/auth/verify", "", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer jwt")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data handler.IdentityView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, verified.UserID.String(), body.Data.UserID)
	assert.Equal(t, "clinic-1", body.Data.ClinicID)

	rec = ts.do(gatewayRequest(http.MethodGet, "/api/auth/verify", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_MISSING", decodeError(t, rec).Error)
}

func TestMe_RequiresIdentity(t *testing.T) {
	ts := newTestServer(t)
	user := approvedUser()
	ts.auth.On("Me", mock.Anything, user.ID).Return(user, nil)

	rec := ts.do(gatewayRequest(http.MethodGet, "/api/auth/me", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(gatewayRequest(http.MethodGet, "/api/auth/me", "", entity.IdentityOf(user)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.Email)
}

func TestSessions(t *testing.T) {
	ts := newTestServer(t)
	caller := entity.IdentityOf(approvedUser())
	sessionID := uuid.New()
	ts.auth.On("ListSessions", mock.Anything, caller.UserID).
		Return([]*entity.RefreshToken{{ID: sessionID, UserID: caller.UserID, ExpiresAt: time.Now().Add(time.Hour)}}, nil)
	ts.auth.On("RevokeSession", mock.Anything, caller.UserID, sessionID).Return(nil)

	rec := ts.do(gatewayRequest(http.MethodGet, "/api/auth/sessions", "", caller))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sessionID.String())
	assert.NotContains(t, rec.Body.String(), "tokenHash")

	rec = ts.do(gatewayRequest(http.MethodDelete, "/api/auth/sessions/"+sessionID.String(), "", caller))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(gatewayRequest(http.MethodDelete, "/api/auth/sessions/not-a-uuid", "", caller))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminApprove(t *testing.T) {
	ts := newTestServer(t)
	target := uuid.New()
	admin := &entity.Identity{UserID: uuid.New(), Role: entity.RoleAdmin}
	approved := approvedUser()
	ts.admin.On("Approve", mock.Anything, mock.MatchedBy(func(in *usecase.ApproveInput) bool {
		return in.Actor.UserID == admin.UserID && in.Actor.Role == entity.RoleAdmin &&
			in.UserID == target && in.ClinicID == "clinic-1" && in.Role == entity.RoleUser && len(in.Permissions) == 0
	})).Return(approved, nil)

	body := `{"clinicId":"clinic-1","role":"user"}`
	path := "/api/auth/admin/users/" + target.String() + "/approve"

	rec := ts.do(gatewayRequest(http.MethodPost, path, body, entity.IdentityOf(approvedUser())))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Error)

	rec = ts.do(gatewayRequest(http.MethodPost, path, body, admin))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(gatewayRequest(http.MethodPost, path, `{"clinicId":"clinic-1","role":"OWNER"}`, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminListUsers_ByPermission(t *testing.T) {
	ts := newTestServer(t)
	approver := &entity.Identity{
		UserID:      uuid.New(),
		Role:        entity.RoleManager,
		ClinicID:    "clinic-1",
		Permissions: entity.Permissions{entity.PermissionUsersApprove},
	}
	ts.admin.On("ListUsers", mock.Anything, mock.MatchedBy(func(actor *entity.Identity) bool {
		return actor.UserID == approver.UserID && actor.ClinicID == "clinic-1"
	}), entity.UserStatusPending).Return([]*entity.User{approvedUser()}, nil)

	rec := ts.do(gatewayRequest(http.MethodGet, "/api/auth/admin/users?status=pending", "", approver))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestAdminReject(t *testing.T) {
	ts := newTestServer(t)
	target := uuid.New()
	admin := &entity.Identity{UserID: uuid.New(), Role: entity.RoleSuperAdmin}
	ts.admin.On("Reject", mock.Anything, mock.MatchedBy(func(in *usecase.RejectInput) bool {
		return in.Actor.UserID == admin.UserID && in.UserID == target
	})).Return(nil, errors.WithStack(domainerrors.ErrInvalidStatusTransition))

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/admin/users/"+target.String()+"/reject", "", admin))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminApprove_OutOfScopeIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	target := uuid.New()
	leader := &entity.Identity{
		UserID:      uuid.New(),
		Role:        entity.RoleTeamLeader,
		ClinicID:    "clinic-1",
		Permissions: entity.Permissions{entity.PermissionUsersApprove},
	}
	ts.admin.On("Approve", mock.Anything, mock.MatchedBy(func(in *usecase.ApproveInput) bool {
		return in.Actor.Role == entity.RoleTeamLeader && in.Actor.ClinicID == "clinic-1" &&
			in.Actor.Permissions.Contains(entity.PermissionUsersApprove)
	})).Return(nil, errors.WithStack(domainerrors.ErrForbidden.WithDetails("cannot assign role SUPER_ADMIN")))

	body := `{"clinicId":"clinic-9","role":"SUPER_ADMIN","permissions":["users:approve","clinic:manage"]}`
	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/admin/users/"+target.String()+"/approve", body, leader))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Error)
}

func TestRegisterClient_SuperAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	body := `{"name":"BI","redirectUris":["https://bi.example.com/callback"],"scopes":["profile"]}`
	ts.oauth.On("RegisterClient", mock.Anything, &usecase.RegisterClientInput{
		Name:         "BI",
		RedirectURIs: []string{"https://bi.example.com/callback"},
		Scopes:       []string{"profile"},
	}).Return(&usecase.RegisterClientOutput{
		Client:       &entity.OAuthClient{ClientID: "dba_abc", Name: "BI", RedirectURIs: []string{"https://bi.example.com/callback"}},
		ClientSecret: "shown-once",
	}, nil)

	rec := ts.do(gatewayRequest(http.MethodPost, "/api/auth/admin/oauth/clients", body, &entity.Identity{UserID: uuid.New(), Role: entity.RoleAdmin}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(gatewayRequest(http.MethodPost, "/api/auth/admin/oauth/clients", body, &entity.Identity{UserID: uuid.New(), Role: entity.RoleSuperAdmin}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clientSecret":"shown-once"`)
}

func TestOAuthAuthorize_Redirects(t *testing.T) {
	ts := newTestServer(t)
	caller := entity.IdentityOf(approvedUser())
	ts.oauth.On("Authorize", mock.Anything, &usecase.AuthorizeInput{
		Identity:    caller,
		ClientID:    "dba_abc",
		RedirectURI: "https://bi.example.com/callback",
		Scope:       "profile",
		State:       "xyz",
	}).Return(&usecase.AuthorizeOutput{RedirectURL: "https://bi.example.com/callback?code=c&state=xyz"}, nil)

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {"dba_abc"},
		"redirect_uri":  {"https://bi.example.com/callback"},
		"scope":         {"profile"},
		"state":         {"xyz"},
	}
	rec := ts.do(gatewayRequest(http.MethodGet, "/oauth/authorize?"+query.Encode(), "", caller))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://bi.example.com/callback?code=c&state=xyz", rec.Header().Get(echo.HeaderLocation))
}

func TestOAuthToken_BasicAuth(t *testing.T) {
	ts := newTestServer(t)
	ts.oauth.On("Token", mock.Anything, &usecase.TokenInput{
		GrantType:    entity.GrantTypeAuthorizationCode,
		ClientID:     "dba_abc",
		ClientSecret: "secret",
		Code:         "code-1",
		RedirectURI:  "https://bi.example.com/callback",
	}).Return(&usecase.OAuthTokenOutput{
		AccessToken:  "opaque-access",
		RefreshToken: "opaque-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    time.Hour,
		Scope:        "profile",
	}, nil)

	form := url.Values{
		"grant_type":   {entity.GrantTypeAuthorizationCode},
		"code":         {"code-1"},
		"redirect_uri": {"https://bi.example.com/callback"},
	}
	req := gatewayRequest(http.MethodPost, "/oauth/token", "", nil)
	req.Body = io.NopCloser(strings.NewReader(form.Encode()))
	req.ContentLength = int64(len(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.SetBasicAuth("dba_abc", "secret")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))

	var body handler.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "opaque-access", body.AccessToken)
	assert.Equal(t, int64(3600), body.ExpiresIn)
	assert.Equal(t, "Bearer", body.TokenType)
}

func TestOAuthToken_ErrorCode(t *testing.T) {
	ts := newTestServer(t)
	ts.oauth.On("Token", mock.Anything, mock.Anything).Return(nil, errors.WithStack(domainerrors.ErrOAuthUnsupportedGrantType))

	rec := ts.do(gatewayRequest(http.MethodPost, "/oauth/token", `{"grant_type":"password"}`, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_grant_type", decodeError(t, rec).Error)
}

func TestOAuthUserInfoAndRevoke(t *testing.T) {
	ts := newTestServer(t)
	ts.oauth.On("UserInfo", mock.Anything, "opaque-access").
		Return(&usecase.UserInfo{Subject: "sub-1", Email: "kim@example.com", Role: entity.RoleUser, ClinicID: "clinic-1"}, nil)
	ts.oauth.On("Revoke", mock.Anything, &usecase.RevokeInput{Token: "opaque-access", ClientID: "dba_abc", ClientSecret: "secret"}).Return(nil)

	req := gatewayRequest(http.MethodGet, "/oauth/userinfo", "", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer opaque-access")
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sub":"sub-1"`)

	rec = ts.do(gatewayRequest(http.MethodPost, "/oauth/revoke", `{"token":"opaque-access","client_id":"dba_abc","client_secret":"secret"}`, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
