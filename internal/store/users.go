package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUserExists signals the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

const (
	insertUserQuery = `
		INSERT INTO users (email, hashed_password, first_name, last_name, is_active, is_verified, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	selectUserByEmailQuery = `
		SELECT id, email, hashed_password, first_name, last_name, is_active, is_verified, is_superuser, created_at
		FROM users
		WHERE lower(email) = lower($1)`

	selectUserByIDQuery = `
		SELECT id, email, hashed_password, first_name, last_name, is_active, is_verified, is_superuser, created_at
		FROM users
		WHERE id = $1`

	updateUserQuery = `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, is_verified = $4
		WHERE id = $5`

	setPasswordQuery = `
		UPDATE users
		SET hashed_password = $1
		WHERE id = $2`

	markVerifiedQuery = `
		UPDATE users
		SET is_verified = TRUE
		WHERE id = $1`
)

// User is an account allowed to use the catalog API.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	IsActive       bool      `json:"is_active"`
	IsVerified     bool      `json:"is_verified"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateUser inserts u, filling its id and creation time.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" || u.HashedPassword == "" {
		return fmt.Errorf("email and password are required")
	}

	err := s.db.QueryRowContext(ctx, insertUserQuery,
		u.Email, u.HashedPassword, u.FirstName, u.LastName, u.IsActive, u.IsVerified, u.IsSuperuser,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail looks a user up case-insensitively.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.lookupUser(ctx, selectUserByEmailQuery, strings.TrimSpace(email))
}

// UserByID returns the user with the given id.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	return s.lookupUser(ctx, selectUserByIDQuery, id)
}

func (s *Store) lookupUser(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsVerified, &u.IsSuperuser, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// UpdateUser stores the profile fields and verification flag of u.
func (s *Store) UpdateUser(ctx context.Context, u User) error {
	result, err := s.db.ExecContext(ctx, updateUserQuery, strings.TrimSpace(u.Email), u.FirstName, u.LastName, u.IsVerified, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// SetPassword replaces the stored password hash.
func (s *Store) SetPassword(ctx context.Context, id int64, hash string) error {
	result, err := s.db.ExecContext(ctx, setPasswordQuery, hash, id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// MarkVerified flags the account's email as confirmed.
func (s *Store) MarkVerified(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, markVerifiedQuery, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}
