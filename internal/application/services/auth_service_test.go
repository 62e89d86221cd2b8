package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/ports"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entities.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entities.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return entities.ErrUserNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

type fakeAuthRepo struct {
	mu     sync.Mutex
	tokens map[string]*ports.RefreshToken
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{tokens: make(map[string]*ports.RefreshToken)}
}

func (r *fakeAuthRepo) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenHash] = &ports.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeAuthRepo) GetRefreshToken(_ context.Context, tokenHash string) (*ports.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *fakeAuthRepo) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenHash]; ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (r *fakeAuthRepo) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeAuthRepo) CleanupExpiredTokens(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.IsExpired() {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *fakeAuthRepo) {
	t.Helper()
	userRepo := newFakeUserRepo()
	authRepo := newFakeAuthRepo()
	jwtCfg := config.JWTConfig{
		Secret:           "test-secret-which-is-long-enough",
		ExpiresIn:        15 * time.Minute,
		RefreshExpiresIn: 24 * time.Hour,
		Issuer:           "taskdeck-test",
	}
	return NewAuthService(userRepo, authRepo, jwtCfg, newTestLogger(t)), userRepo, authRepo
}

func registerReq(email, username string) ports.RegisterRequest {
	return ports.RegisterRequest{
		Email:    email,
		Username: username,
		Password: "correct horse battery staple",
	}
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), resp.ExpiresIn)
	require.NotNil(t, resp.User)
	assert.Empty(t, resp.User.PasswordHash)

	stored, err := userRepo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(stored.PasswordHash), []byte("correct horse battery staple")))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerReq("a@example.com", "other"))
	assert.ErrorIs(t, err, entities.ErrEmailTaken)

	_, err = svc.Register(ctx, registerReq("b@example.com", "alice"))
	assert.ErrorIs(t, err, entities.ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, ports.LoginRequest{
		Email:    "a@example.com",
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(ctx, ports.LoginRequest{Email: "a@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)

	_, err = svc.Login(ctx, ports.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer, _, _ := newTestAuthService(t)
	ctx := context.Background()

	resp, err := issuer.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	verifier := NewAuthService(newFakeUserRepo(), newFakeAuthRepo(), config.JWTConfig{
		Secret:    "a-completely-different-secret",
		ExpiresIn: 15 * time.Minute,
	}, newTestLogger(t))

	_, err = verifier.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old token was revoked by the exchange.
	_, err = svc.RefreshToken(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerReq("a@example.com", "alice"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.User.ID))

	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}
