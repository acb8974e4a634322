package users

import (
	"context"
	"errors"
	"testing"

	"songbook/internal/auth"
	"songbook/internal/store"
)

type memoryStore struct {
	byID   map[int64]*store.User
	nextID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: make(map[int64]*store.User)}
}

func (m *memoryStore) CreateUser(_ context.Context, u *store.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return store.ErrUserExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	m.byID[u.ID] = &stored
	return nil
}

func (m *memoryStore) UserByEmail(_ context.Context, email string) (store.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return store.User{}, store.ErrUserNotFound
}

func (m *memoryStore) UserByID(_ context.Context, id int64) (store.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return store.User{}, store.ErrUserNotFound
	}
	return *u, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, u store.User) error {
	stored, ok := m.byID[u.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	stored.Email = u.Email
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.IsVerified = u.IsVerified
	return nil
}

func (m *memoryStore) SetPassword(_ context.Context, id int64, hash string) error {
	stored, ok := m.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	stored.HashedPassword = hash
	return nil
}

func (m *memoryStore) MarkVerified(_ context.Context, id int64) error {
	stored, ok := m.byID[id]
	if !ok {
		return store.ErrUserNotFound
	}
	stored.IsVerified = true
	return nil
}

type recordingNotifier struct {
	resetToken  string
	verifyToken string
}

func (r *recordingNotifier) PasswordReset(_ context.Context, _ store.User, token string) {
	r.resetToken = token
}

func (r *recordingNotifier) VerificationRequested(_ context.Context, _ store.User, token string) {
	r.verifyToken = token
}

func newTestService() (Service, *memoryStore, *recordingNotifier) {
	st := newMemoryStore()
	notifier := &recordingNotifier{}
	tokens := auth.NewTokenManager(auth.Config{
		AccessSecret: "access-secret-for-tests",
		ResetSecret:  "reset-secret-for-tests",
		VerifySecret: "verify-secret-for-tests",
	})
	return New(st, tokens, notifier), st, notifier
}

func register(t *testing.T, svc Service) store.User {
	t.Helper()
	u, err := svc.Register(context.Background(), Registration{Email: "Ada@Example.com", Password: "password1", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	u := register(t, svc)
	if u.Email != "ada@example.com" || !u.IsActive || u.IsVerified {
		t.Fatalf("unexpected user: %+v", u)
	}

	token, err := svc.Login(ctx, "ada@example.com", "password1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token.TokenType != "bearer" || token.ExpiresIn != 3600 {
		t.Fatalf("unexpected token: %+v", token)
	}

	me, err := svc.Authenticate(ctx, token.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if me.ID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, me.ID)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, Registration{Email: "not-an-email", Password: "password1"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, Registration{Email: "a@example.com", Password: "short"}); !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	register(t, svc)
	if _, err := svc.Register(ctx, Registration{Email: "ada@example.com", Password: "password2"}); !errors.Is(err, store.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	u := register(t, svc)

	if _, err := svc.Login(ctx, "ada@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	st.byID[u.ID].IsActive = false
	if _, err := svc.Login(ctx, "ada@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	register(t, svc)

	if err := svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	if notifier.resetToken == "" {
		t.Fatalf("expected reset token to be delivered")
	}

	if err := svc.ResetPassword(ctx, notifier.resetToken, "new-password"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "new-password"); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}

	// The token was bound to the old password hash.
	if err := svc.ResetPassword(ctx, notifier.resetToken, "another-password"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, notifier := newTestService()

	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if notifier.resetToken != "" {
		t.Fatalf("no token should be issued")
	}
}

func TestVerifyFlow(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	register(t, svc)

	if err := svc.RequestVerify(ctx, "ada@example.com"); err != nil {
		t.Fatalf("RequestVerify returned error: %v", err)
	}
	u, err := svc.Verify(ctx, notifier.verifyToken)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !u.IsVerified {
		t.Fatalf("user should be verified")
	}

	if _, err := svc.Verify(ctx, notifier.verifyToken); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if _, err := svc.Verify(ctx, "garbage"); !errors.Is(err, ErrInvalidVerifyToken) {
		t.Fatalf("expected ErrInvalidVerifyToken, got %v", err)
	}
}

func TestUpdateMeEmailClearsVerification(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()
	u := register(t, svc)
	st.byID[u.ID].IsVerified = true
	u.IsVerified = true

	email := "ada.l@example.com"
	password := "changed-password"
	updated, err := svc.UpdateMe(ctx, u, ProfileUpdate{Email: &email, Password: &password})
	if err != nil {
		t.Fatalf("UpdateMe returned error: %v", err)
	}
	if updated.Email != email || updated.IsVerified {
		t.Fatalf("unexpected user: %+v", updated)
	}
	if _, err := svc.Login(ctx, email, password); err != nil {
		t.Fatalf("Login after update failed: %v", err)
	}
}

func TestEnsureSuperuserIsIdempotent(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.EnsureSuperuser(ctx, "root@example.com", "super-secret"); err != nil {
			t.Fatalf("EnsureSuperuser returned error: %v", err)
		}
	}
	if len(st.byID) != 1 || !st.byID[1].IsSuperuser {
		t.Fatalf("expected one superuser, got %+v", st.byID)
	}
}

func TestCanceledContext(t *testing.T) {
	svc, _, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Login(ctx, "a@example.com", "password1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
