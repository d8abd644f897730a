package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(_ context.Context, tenantID, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (m *mockAuthRepo) FindByIDAny(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (m *mockAuthRepo) UpdateLastLogin(_ context.Context, tenantID, id string) error {
	if u, ok := m.users[id]; ok && u.TenantID == tenantID {
		now := time.Now().UTC()
		u.LastLogin = &now
	}
	return nil
}

func (m *mockAuthRepo) UpdatePassword(_ context.Context, tenantID, id, passwordHash, jti string) error {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.JTI = jti
	return nil
}

func (m *mockAuthRepo) RotateJTI(_ context.Context, tenantID, id, jti string) error {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return sql.ErrNoRows
	}
	u.JTI = jti
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	m.refreshTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	token, ok := m.refreshTokens[tokenHash]
	if !ok || time.Now().UTC().After(token.ExpiresAt) {
		return nil, sql.ErrNoRows
	}
	return token, nil
}

func (m *mockAuthRepo) DeleteRefreshToken(_ context.Context, id string) error {
	for hash, token := range m.refreshTokens {
		if token.ID == id {
			delete(m.refreshTokens, hash)
		}
	}
	return nil
}

func (m *mockAuthRepo) DeleteRefreshTokensForUser(_ context.Context, userID string) error {
	for hash, token := range m.refreshTokens {
		if token.UserID == userID {
			delete(m.refreshTokens, hash)
		}
	}
	return nil
}

func seedAuthUser(repo *mockAuthRepo, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:           "user-1",
		TenantID:     "tenant-1",
		Email:        "ana@firm.test",
		PasswordHash: string(hash),
		JTI:          "jti-1",
		FirstName:    "Ana",
		LastName:     "Reyes",
		Role:         models.RoleAttorney,
		Status:       models.UserActive,
	}
	repo.users[user.ID] = user
	return user
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "rfe-api-test",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "tenant-1", resp.User.TenantID)

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, models.RoleAttorney, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmailSameError(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@firm.test", Password: "correct-horse"})
	require.Error(t, err)
	// Unknown email and wrong password are indistinguishable.
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	user := seedAuthUser(repo, "correct-horse")
	user.Status = models.UserInactive
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// Replaying the consumed token must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRevokesAccessTokens(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), login.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), claims, RequestMeta{}))

	_, err = svc.ValidateToken(context.Background(), login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	// Logout also drops refresh tokens.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceChangePasswordRevokesOldTokens(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), login.AccessToken)
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), claims, models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	}, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), login.AccessToken)
	require.Error(t, err)

	// The new password works; the old one does not.
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "correct-horse"})
	require.Error(t, err)
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ana@firm.test", Password: "battery-staple"})
	require.NoError(t, err)
}

func TestAuthServiceChangePasswordRejectsShortPassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedAuthUser(repo, "correct-horse")
	svc := newAuthService(repo)

	claims := &models.JWTClaims{UserID: "user-1", TenantID: "tenant-1"}
	err := svc.ChangePassword(context.Background(), claims, models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "short",
	}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
