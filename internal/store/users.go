package store

import (
	"context"
	"database/sql"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
)

// CreateUser inserts a new user account.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, phone, address, is_wholesale_account)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, u, query,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Phone, u.Address, u.IsWholesaleAccount)
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("user not found: %s", email)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserProfile saves profile fields (name, phone, address).
func (s *Store) UpdateUserProfile(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET name = $1, phone = $2, address = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &u.UpdatedAt, query, u.Name, u.Phone, u.Address, u.ID)
	if err == sql.ErrNoRows {
		return apperr.NotFoundf("user not found: %d", u.ID)
	}
	return err
}

// GetAdminByUsername retrieves a back-office account.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.GetContext(ctx, &a, "SELECT * FROM admins WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("admin not found: %s", username)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAdmin seeds an admin account if the username is not yet present.
func (s *Store) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING`,
		username, passwordHash)
	return err
}
