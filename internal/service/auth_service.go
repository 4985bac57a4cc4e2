package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles customer accounts and admin login. Admin logins
// issue an HMAC-signed, expiring token instead of a static credential.
type AuthService struct {
	users    UserRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, tokenSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		secret:   []byte(tokenSecret),
		tokenTTL: tokenTTL,
		logger:   util.GetLogger(),
	}
}

// RegisterRequest carries a new account submission.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Register creates a customer or wholesale account with a bcrypt-hashed
// password. Duplicate emails are rejected.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, apperr.Validationf("name, email and password are required")
	}

	email := normalizeEmail(req.Email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.Validationf("email already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role != models.RoleCustomer && role != models.RoleWholesale {
		role = models.RoleCustomer
	}

	user := &models.User{
		Name:               req.Name,
		Email:              email,
		PasswordHash:       string(hash),
		Role:               role,
		IsWholesaleAccount: role == models.RoleWholesale,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("email", user.Email), zap.String("role", user.Role))
	return user, nil
}

// Login verifies credentials and returns the account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperr.Validationf("email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthorizedf("invalid credentials")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthorizedf("invalid credentials")
	}
	return user, nil
}

// GetProfile returns the account for an email.
func (s *AuthService) GetProfile(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, apperr.Validationf("email is required")
	}
	return s.users.GetUserByEmail(ctx, normalizeEmail(email))
}

// UpdateProfileRequest carries a partial profile edit.
type UpdateProfileRequest struct {
	Name    string          `json:"name"`
	Phone   *string         `json:"phone"`
	Address *models.Address `json:"address"`
}

// UpdateProfile applies name/phone/address edits.
func (s *AuthService) UpdateProfile(ctx context.Context, email string, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(ctx, email)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = *req.Address
	}

	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureDefaultAdmin seeds the configured admin account if missing.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	return s.users.EnsureAdmin(ctx, username, string(hash))
}

// AdminLogin verifies back-office credentials and mints a signed token.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperr.Validationf("username and password are required")
	}

	admin, err := s.users.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", apperr.Unauthorizedf("invalid credentials")
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", apperr.Unauthorizedf("invalid credentials")
	}

	return s.mintAdminToken(admin.ID, time.Now().Add(s.tokenTTL)), nil
}

// mintAdminToken builds "base64(id:expiry).base64(hmac)".
func (s *AuthService) mintAdminToken(adminID int64, expiry time.Time) string {
	payload := fmt.Sprintf("%d:%d", adminID, expiry.Unix())
	sig := s.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// VerifyAdminToken checks the signature and expiry of an admin token.
func (s *AuthService) VerifyAdminToken(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return apperr.Unauthorizedf("admin not authenticated")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return apperr.Unauthorizedf("admin not authenticated")
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return apperr.Unauthorizedf("admin not authenticated")
	}

	if !hmac.Equal(sig, s.sign(string(payload))) {
		return apperr.Unauthorizedf("admin not authenticated")
	}

	fields := strings.Split(string(payload), ":")
	if len(fields) != 2 {
		return apperr.Unauthorizedf("admin not authenticated")
	}
	expiry, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		return apperr.Unauthorizedf("admin session expired")
	}
	return nil
}

func (s *AuthService) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
