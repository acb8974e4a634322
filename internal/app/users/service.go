package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"songbook/internal/auth"
	"songbook/internal/logging"
	"songbook/internal/store"
)

var (
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized indicates a missing, invalid or expired access token or
	// an account that may no longer sign in.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidEmail rejects addresses that do not parse.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidResetToken covers bad, expired and already-used reset tokens.
	ErrInvalidResetToken = errors.New("reset password token is invalid")
	// ErrInvalidVerifyToken covers bad and expired verification tokens.
	ErrInvalidVerifyToken = errors.New("verification token is invalid")
	// ErrAlreadyVerified is returned when the account is already verified.
	ErrAlreadyVerified = errors.New("user is already verified")
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, u *store.User) error
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
	UpdateUser(ctx context.Context, u store.User) error
	SetPassword(ctx context.Context, id int64, hash string) error
	MarkVerified(ctx context.Context, id int64) error
}

// Notifier delivers out-of-band tokens to a user.
type Notifier interface {
	PasswordReset(ctx context.Context, u store.User, token string)
	VerificationRequested(ctx context.Context, u store.User, token string)
}

// Registration is the payload of a sign-up.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate carries the fields a user may change on their own account.
type ProfileUpdate struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Service exposes account workflows.
type Service interface {
	Register(ctx context.Context, in Registration) (store.User, error)
	Login(ctx context.Context, email, password string) (Token, error)
	Authenticate(ctx context.Context, token string) (store.User, error)
	UpdateMe(ctx context.Context, current store.User, in ProfileUpdate) (store.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	RequestVerify(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) (store.User, error)
	EnsureSuperuser(ctx context.Context, email, password string) error
}

type service struct {
	store    Store
	tokens   *auth.TokenManager
	notifier Notifier
}

// New wires a Service. A nil notifier logs tokens instead of sending them.
func New(store Store, tokens *auth.TokenManager, notifier Notifier) Service {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &service{store: store, tokens: tokens, notifier: notifier}
}

func (s *service) Register(ctx context.Context, in Registration) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return store.User{}, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return store.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.User{}, err
	}

	u := store.User{
		Email:          email,
		HashedPassword: hash,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		IsActive:       true,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return store.User{}, err
	}

	logging.WithContext(ctx).Info().Int64("new_user_id", u.ID).Msg("user registered")
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			auth.VerifyPassword("", password)
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if !auth.VerifyPassword(u.HashedPassword, password) || !u.IsActive {
		return Token{}, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(u.ID)
	if err != nil {
		return Token{}, err
	}
	return Token{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}

	id, err := s.tokens.ParseAccess(token)
	if err != nil {
		return store.User{}, ErrUnauthorized
	}
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return store.User{}, ErrUnauthorized
		}
		return store.User{}, err
	}
	if !u.IsActive {
		return store.User{}, ErrUnauthorized
	}
	return u, nil
}

func (s *service) UpdateMe(ctx context.Context, current store.User, in ProfileUpdate) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}

	updated := current
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return store.User{}, err
		}
		if !strings.EqualFold(email, current.Email) {
			updated.Email = email
			updated.IsVerified = false
		}
	}
	if in.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updated.LastName = strings.TrimSpace(*in.LastName)
	}

	var newHash string
	if in.Password != nil {
		if err := auth.ValidatePassword(*in.Password); err != nil {
			return store.User{}, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return store.User{}, err
		}
		newHash = hash
	}

	if err := s.store.UpdateUser(ctx, updated); err != nil {
		return store.User{}, err
	}
	if newHash != "" {
		if err := s.store.SetPassword(ctx, updated.ID, newHash); err != nil {
			return store.User{}, err
		}
		updated.HashedPassword = newHash
	}

	logging.WithContext(ctx).Info().Msg("profile updated")
	return updated, nil
}

// ForgotPassword issues a reset token for an active account. Unknown and
// inactive addresses succeed silently so callers cannot enumerate accounts.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	token, err := s.tokens.IssueReset(u.ID, u.HashedPassword)
	if err != nil {
		return err
	}
	s.notifier.PasswordReset(ctx, u, token)
	return nil
}

// ResetPassword sets a new password. A reset token stops working once the
// password it was issued against has changed.
func (s *service) ResetPassword(ctx context.Context, token, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, fingerprint, err := s.tokens.ParseReset(token)
	if err != nil {
		return ErrInvalidResetToken
	}
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !u.IsActive || auth.Fingerprint(u.HashedPassword) != fingerprint {
		return ErrInvalidResetToken
	}

	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.SetPassword(ctx, u.ID, hash); err != nil {
		return err
	}

	logging.WithContext(ctx).Info().Int64("reset_user_id", u.ID).Msg("password reset")
	return nil
}

// RequestVerify issues a verification token for an active, unverified
// account. Any other address succeeds silently.
func (s *service) RequestVerify(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive || u.IsVerified {
		return nil
	}

	token, err := s.tokens.IssueVerify(u.ID, u.Email)
	if err != nil {
		return err
	}
	s.notifier.VerificationRequested(ctx, u, token)
	return nil
}

func (s *service) Verify(ctx context.Context, token string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}

	id, email, err := s.tokens.ParseVerify(token)
	if err != nil {
		return store.User{}, ErrInvalidVerifyToken
	}
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return store.User{}, ErrInvalidVerifyToken
		}
		return store.User{}, err
	}
	if !strings.EqualFold(u.Email, email) {
		return store.User{}, ErrInvalidVerifyToken
	}
	if u.IsVerified {
		return store.User{}, ErrAlreadyVerified
	}

	if err := s.store.MarkVerified(ctx, u.ID); err != nil {
		return store.User{}, err
	}
	u.IsVerified = true
	return u, nil
}

// EnsureSuperuser creates a verified superuser unless the email is taken.
func (s *service) EnsureSuperuser(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	u := store.User{
		Email:          normalized,
		HashedPassword: hash,
		IsActive:       true,
		IsVerified:     true,
		IsSuperuser:    true,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("bootstrap superuser: %w", err)
	}

	logging.WithContext(ctx).Info().Int64("new_user_id", u.ID).Msg("superuser created")
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
