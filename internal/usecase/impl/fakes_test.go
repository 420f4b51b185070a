package impl

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"testing"
	"time"

	"dbaportal/config"
	"dbaportal/internal/domain/entity"
	"dbaportal/internal/domain/repository"
	"dbaportal/internal/domain/service"
	"dbaportal/internal/infra/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:      12,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		OAuth: &config.OAuthConfig{
			CodeTTL:         10 * time.Minute,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
		},
	}
	cfg.SecretKey.Access = "test_access_secret_key_very_long_for_testing"
	cfg.SecretKey.Refresh = "test_refresh_secret_key_very_long_for_testing"

	return cfg
}

// memStore is an in-memory implementation of every repository. Transactions are
// serialized and roll back by restoring a snapshot.
type memStore struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	users   map[uuid.UUID]entity.User
	refresh map[string]entity.RefreshToken
	clients map[string]entity.OAuthClient
	codes   map[string]entity.AuthorizationCode
	tokens  map[uuid.UUID]entity.OAuthToken
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[uuid.UUID]entity.User{},
		refresh: map[string]entity.RefreshToken{},
		clients: map[string]entity.OAuthClient{},
		codes:   map[string]entity.AuthorizationCode{},
		tokens:  map[uuid.UUID]entity.OAuthToken{},
	}
}

// --- TransactionManager / RepositoryFactory ---

func (s *memStore) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	users, refresh := maps.Clone(s.users), maps.Clone(s.refresh)
	codes, tokens := maps.Clone(s.codes), maps.Clone(s.tokens)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.refresh, s.codes, s.tokens = users, refresh, codes, tokens
		s.mu.Unlock()

		return err
	}

	return nil
}

func (s *memStore) NewUserRepository() repository.UserRepository                 { return s }
func (s *memStore) NewRefreshTokenRepository() repository.RefreshTokenRepository { return s }
func (s *memStore) NewOAuthRepository() repository.OAuthRepository               { return s }

// --- UserRepository ---

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return &u, nil
}

// FindByIDForUpdate relies on transactions being serialized by txMu.
func (s *memStore) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return s.FindByID(ctx, id)
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (s *memStore) ListByStatus(_ context.Context, status entity.UserStatus) ([]*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*entity.User{}
	for _, u := range s.users {
		if status == "" || u.Status == status {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	return out, nil
}

func (s *memStore) Create(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrUserEmailTaken
		}
	}
	s.users[user.ID] = *user

	return nil
}

func (s *memStore) Update(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	s.users[user.ID] = *user

	return nil
}

// --- RefreshTokenRepository ---

func (s *memStore) CreateRefreshToken(_ context.Context, token *entity.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh[token.TokenHash] = *token

	return nil
}

func (s *memStore) FindRefreshTokenByHash(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refresh[tokenHash]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}

	return &t, nil
}

func (s *memStore) FindRefreshTokensByUserID(_ context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*entity.RefreshToken{}
	for _, t := range s.refresh {
		if t.UserID == userID {
			out = append(out, &t)
		}
	}

	return out, nil
}

func (s *memStore) DeleteRefreshTokenByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refresh[tokenHash]; !ok {
		return repository.ErrRefreshTokenNotFound
	}
	delete(s.refresh, tokenHash)

	return nil
}

func (s *memStore) DeleteRefreshTokenForUser(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, t := range s.refresh {
		if t.ID == id && t.UserID == userID {
			delete(s.refresh, hash)

			return nil
		}
	}

	return repository.ErrRefreshTokenNotFound
}

func (s *memStore) DeleteRefreshTokensByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, t := range s.refresh {
		if t.UserID == userID {
			delete(s.refresh, hash)
			n++
		}
	}

	return n, nil
}

func (s *memStore) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now()
	for hash, t := range s.refresh {
		if t.IsExpired(now) {
			delete(s.refresh, hash)
			n++
		}
	}

	return n, nil
}

// --- OAuthRepository ---

func (s *memStore) CreateClient(_ context.Context, client *entity.OAuthClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[client.ClientID] = *client

	return nil
}

func (s *memStore) FindClientByClientID(_ context.Context, clientID string) (*entity.OAuthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, repository.ErrOAuthClientNotFound
	}

	return &c, nil
}

func (s *memStore) CreateAuthorizationCode(_ context.Context, code *entity.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[code.CodeHash] = *code

	return nil
}

func (s *memStore) FindAuthorizationCodeByHash(_ context.Context, codeHash string) (*entity.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[codeHash]
	if !ok {
		return nil, repository.ErrAuthorizationCodeNotFound
	}

	return &c, nil
}

func (s *memStore) DeleteAuthorizationCodeByHash(_ context.Context, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[codeHash]; !ok {
		return repository.ErrAuthorizationCodeNotFound
	}
	delete(s.codes, codeHash)

	return nil
}

func (s *memStore) CreateToken(_ context.Context, token *entity.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.ID] = *token

	return nil
}

func (s *memStore) FindTokenByAccessHash(_ context.Context, accessHash string) (*entity.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		if t.AccessTokenHash == accessHash {
			return &t, nil
		}
	}

	return nil, repository.ErrOAuthTokenNotFound
}

func (s *memStore) FindTokenByRefreshHash(_ context.Context, refreshHash string) (*entity.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		if t.RefreshTokenHash == refreshHash {
			return &t, nil
		}
	}

	return nil, repository.ErrOAuthTokenNotFound
}

func (s *memStore) DeleteTokenByRefreshHash(_ context.Context, refreshHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tokens {
		if t.RefreshTokenHash == refreshHash {
			delete(s.tokens, id)

			return nil
		}
	}

	return repository.ErrOAuthTokenNotFound
}

func (s *memStore) DeleteTokenByHash(_ context.Context, clientID, tokenHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tokens {
		if t.ClientID == clientID && (t.AccessTokenHash == tokenHash || t.RefreshTokenHash == tokenHash) {
			delete(s.tokens, id)
			n++
		}
	}

	return n, nil
}

func (s *memStore) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.refresh)
}

// plainHasher keeps tests fast; bcrypt is covered in infra/auth.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Check(password, hash string) bool     { return hash == "hashed:"+password }

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAccountEvent(ctx context.Context, event *service.AccountEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyAdmins(ctx context.Context, title, body string, data map[string]string) error {
	return m.Called(ctx, title, body, data).Error(0)
}

// testEnv wires the real services over the in-memory store.
type testEnv struct {
	store     *memStore
	tokens    service.TokenService
	publisher *mockPublisher
	notifier  *mockNotifier
	auth      *authService
	admin     *adminService
	oauth     *oauthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	return newTestEnvWithConfig(t, newTestConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	store := newMemStore()
	publisher := &mockPublisher{}
	notifier := &mockNotifier{}
	logger := newDiscardLogger()

	authSrv := NewAuthService(AuthServiceParams{
		TxManager:        store,
		UserRepo:         store,
		RefreshTokenRepo: store,
		Hasher:           plainHasher{},
		TokenService:     tokens,
		Publisher:        publisher,
		Notifier:         notifier,
		Logger:           logger,
	}).(*authService)
	adminSrv := NewAdminService(AdminServiceParams{
		TxManager: store,
		UserRepo:  store,
		Publisher: publisher,
		Logger:    logger,
	}).(*adminService)
	oauthSrv := NewOAuthService(OAuthServiceParams{
		TxManager:    store,
		OAuthRepo:    store,
		UserRepo:     store,
		Hasher:       plainHasher{},
		TokenService: tokens,
		Config:       cfg,
		Logger:       logger,
	}).(*oauthService)

	return &testEnv{
		store:     store,
		tokens:    tokens,
		publisher: publisher,
		notifier:  notifier,
		auth:      authSrv,
		admin:     adminSrv,
		oauth:     oauthSrv,
	}
}

// seedUser stores an account directly; password is "Password123!".
func (e *testEnv) seedUser(t *testing.T, email string, status entity.UserStatus) *entity.User {
	t.Helper()

	user := entity.NewPendingUser(email, "hashed:Password123!", "Tester")
	if status == entity.UserStatusApproved {
		require.NoError(t, user.Approve("clinic-1", entity.RoleManager, nil))
	}
	if status == entity.UserStatusRejected {
		_, err := user.Reject()
		require.NoError(t, err)
	}
	require.NoError(t, e.store.Create(context.Background(), user))

	return user
}
