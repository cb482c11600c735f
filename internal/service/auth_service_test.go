package service

import (
	"context"
	"testing"
	"time"

	"smartdecor/config"
	"smartdecor/internal/auth"
	"smartdecor/internal/domain"
	"smartdecor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "test",
	}}
}

func newAuthService(t *testing.T, db *gorm.DB, m *fakeMailer) *AuthService {
	mail := NewMailService(m, "", zaptest.NewLogger(t))
	return NewAuthService(testConfig(), db, repository.NewUserRepository(db), mail, zaptest.NewLogger(t))
}

func TestAuthService_FirstUserIsAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(t, db, &fakeMailer{})

	first, pair, err := svc.Register(RegisterInput{Name: "Owner", Email: "Owner@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, first.Role)
	assert.Equal(t, "owner@example.com", first.Email)
	assert.NotEmpty(t, pair.AccessToken)

	second, _, err := svc.Register(RegisterInput{Name: "Buyer", Email: "buyer@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, second.Role)

	_, _, err = svc.Register(RegisterInput{Email: "OWNER@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_LoginAndRefresh(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(t, db, &fakeMailer{})
	_, _, err := svc.Register(RegisterInput{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, _, err = svc.Login("a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, _, err = svc.Login("nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCreds)

	u, pair, err := svc.Login("A@example.com", "secret123")
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	claims, err := auth.ParseAccessToken(&testConfig().JWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	refreshed, err := svc.RefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	_, err = svc.RefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthService_PasswordResetWithOTP(t *testing.T) {
	db := setupTestDB(t)
	m := &fakeMailer{}
	svc := newAuthService(t, db, m)
	_, _, err := svc.Register(RegisterInput{Name: "Amina", Email: "amina@example.com", Password: "old-pass"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ForgotPassword(context.Background(), "ghost@example.com"), ErrUserNotFound)
	require.NoError(t, svc.ForgotPassword(context.Background(), "amina@example.com"))
	require.Len(t, m.sent, 1)

	u, err := repository.NewUserRepository(db).GetByEmail("amina@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.OTP)
	assert.Len(t, *u.OTP, 6)
	assert.Contains(t, m.sent[0].html, *u.OTP)

	assert.ErrorIs(t, svc.ResetPassword("amina@example.com", "000000x", "new-pass"), ErrInvalidOTP)
	require.NoError(t, svc.ResetPassword("amina@example.com", *u.OTP, "new-pass"))
	// single use
	assert.ErrorIs(t, svc.ResetPassword("amina@example.com", *u.OTP, "again"), ErrInvalidOTP)

	_, _, err = svc.Login("amina@example.com", "new-pass")
	assert.NoError(t, err)
}

func TestAuthService_ExpiredOTP(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(t, db, &fakeMailer{})
	_, _, err := svc.Register(RegisterInput{Email: "e@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(context.Background(), "e@example.com"))

	u, err := repository.NewUserRepository(db).GetByEmail("e@example.com")
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, svc.ResetPassword("e@example.com", *u.OTP, "new"), ErrInvalidOTP)
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(t, db, &fakeMailer{})
	existing, _, err := svc.Register(RegisterInput{Email: "linked@example.com", Password: "pw"})
	require.NoError(t, err)

	u, _, created, err := svc.LoginWithGoogle("g-1", "linked@example.com", "Linked", "https://pic")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, u.ID)
	assert.True(t, u.IsGoogleAuth)

	u2, _, created, err := svc.LoginWithGoogle("g-2", "fresh@example.com", "Fresh", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleCustomer, u2.Role)

	again, _, created, err := svc.LoginWithGoogle("g-2", "fresh@example.com", "Fresh", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u2.ID, again.ID)
}

func TestUserService_UpdateRequiresOwnerOrAdmin(t *testing.T) {
	db := setupTestDB(t)
	authSvc := newAuthService(t, db, &fakeMailer{})
	admin, _, err := authSvc.Register(RegisterInput{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	buyer, _, err := authSvc.Register(RegisterInput{Email: "buyer@example.com", Password: "pw"})
	require.NoError(t, err)
	other, _, err := authSvc.Register(RegisterInput{Email: "other@example.com", Password: "pw"})
	require.NoError(t, err)

	svc := NewUserService(repository.NewUserRepository(db))
	name := "Buyer One"
	_, err = svc.Update(other.ID, other.Role, buyer.ID, ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	u, err := svc.Update(buyer.ID, buyer.Role, buyer.ID, ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Buyer One", u.Name)

	taken := "other@example.com"
	_, err = svc.Update(admin.ID, admin.Role, buyer.ID, ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailExists)

	assert.ErrorIs(t, svc.Delete(other.ID, other.Role, buyer.ID), ErrForbidden)
	require.NoError(t, svc.Delete(admin.ID, admin.Role, buyer.ID))
	_, err = svc.Get(buyer.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
