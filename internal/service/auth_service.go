package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"smartdecor/config"
	"smartdecor/internal/auth"
	"smartdecor/internal/domain"
	"smartdecor/internal/models"
	"smartdecor/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const otpTTL = 10 * time.Minute

var (
	ErrEmailExists    = errors.New("email already registered")
	ErrInvalidCreds   = errors.New("invalid email or password")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidOTP     = errors.New("invalid or expired otp")
	ErrInactiveUser   = errors.New("account is disabled")
	ErrGoogleOnlyUser = errors.New("account uses Google sign-in; reset the password first")
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Phone    string
}

type AuthService struct {
	cfg      *config.Config
	db       *gorm.DB
	userRepo *repository.UserRepository
	mail     *MailService
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(cfg *config.Config, db *gorm.DB, userRepo *repository.UserRepository, mail *MailService, log *zap.Logger) *AuthService {
	return &AuthService{cfg: cfg, db: db, userRepo: userRepo, mail: mail, log: log.Named("auth"), now: time.Now}
}

// Register creates a customer account. The very first account on a fresh database becomes the admin.
func (s *AuthService) Register(in RegisterInput) (*models.User, *auth.TokenPair, error) {
	email := normalizeEmail(in.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Address:      in.Address,
		Phone:        in.Phone,
		IsActive:     true,
		Role:         domain.RoleCustomer,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		if _, err := users.GetByEmail(email); err == nil {
			return ErrEmailExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		n, err := users.Count()
		if err != nil {
			return err
		}
		if n == 0 {
			u.Role = domain.RoleAdmin
		}
		return users.Create(u)
	})
	if err != nil {
		return nil, nil, err
	}
	if u.IsAdmin() {
		s.log.Info("first user registered as admin", zap.Uint("user_id", u.ID))
	}
	pair, err := s.issue(u)
	return u, pair, err
}

func (s *AuthService) Login(email, password string) (*models.User, *auth.TokenPair, error) {
	u, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCreds
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCreds
	}
	if !u.IsActive {
		return nil, nil, ErrInactiveUser
	}
	now := s.now()
	u.LastLogin = &now
	if err := s.userRepo.Update(u); err != nil {
		return nil, nil, err
	}
	pair, err := s.issue(u)
	return u, pair, err
}

// LoginWithGoogle finds the user by Google id, links an existing email account, or creates one.
// The returned bool is true when a new account was created.
func (s *AuthService) LoginWithGoogle(googleID, email, name, pictureURL string) (*models.User, *auth.TokenPair, bool, error) {
	u, err := s.userRepo.GetByGoogleID(googleID)
	if err == nil {
		pair, err := s.issue(u)
		return u, pair, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, err
	}

	gid := googleID
	existing, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err == nil {
		existing.GoogleID = &gid
		existing.IsGoogleAuth = true
		existing.EmailVerified = true
		if existing.ProfileImage == "" {
			existing.ProfileImage = pictureURL
		}
		if err := s.userRepo.Update(existing); err != nil {
			return nil, nil, false, err
		}
		pair, err := s.issue(existing)
		return existing, pair, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, err
	}

	u = &models.User{
		Name:          name,
		Email:         normalizeEmail(email),
		GoogleID:      &gid,
		IsGoogleAuth:  true,
		EmailVerified: true,
		IsActive:      true,
		ProfileImage:  pictureURL,
		Role:          domain.RoleCustomer,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		n, err := users.Count()
		if err != nil {
			return err
		}
		if n == 0 {
			u.Role = domain.RoleAdmin
		}
		return users.Create(u)
	})
	if err != nil {
		return nil, nil, false, err
	}
	pair, err := s.issue(u)
	return u, pair, true, err
}

func (s *AuthService) RefreshToken(refreshToken string) (*auth.TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return s.issue(u)
}

// ForgotPassword stores a fresh 6-digit code on the user and emails it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	code, err := generateOTP()
	if err != nil {
		return err
	}
	expires := s.now().Add(otpTTL)
	u.OTP = &code
	u.OTPExpiresAt = &expires
	if err := s.userRepo.Update(u); err != nil {
		return err
	}
	if s.mail != nil {
		if err := s.mail.SendPasswordResetOTP(ctx, u.Email, u.Name, code, int(otpTTL/time.Minute)); err != nil {
			return fmt.Errorf("send otp: %w", err)
		}
	}
	return nil
}

// ResetPassword checks the emailed code and replaces the password. The code is single use.
func (s *AuthService) ResetPassword(email, otp, newPassword string) error {
	u, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !u.OTPValid(otp, s.now()) {
		return ErrInvalidOTP
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.OTP = nil
	u.OTPExpiresAt = nil
	return s.userRepo.Update(u)
}

// ChangePassword updates the user's password. Requires current password verification.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return ErrInvalidCreds
	}
	if u.PasswordHash == "" {
		return ErrGoogleOnlyUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCreds
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.userRepo.Update(u)
}

func (s *AuthService) issue(u *models.User) (*auth.TokenPair, error) {
	return auth.GeneratePair(&s.cfg.JWT, u.ID, u.Email, u.Name, u.Role)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
