package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences. A token is only accepted for the purpose it was minted for.
const (
	AudienceAccess = "users:auth"
	AudienceReset  = "users:reset"
	AudienceVerify = "users:verify"
)

// Default lifetimes.
const (
	DefaultAccessTTL = time.Hour
	DefaultResetTTL  = time.Hour
	DefaultVerifyTTL = time.Hour
)

// ErrInvalidToken covers malformed, expired, mis-signed and wrong-audience tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Config holds the signing secrets and lifetimes of a TokenManager.
type Config struct {
	AccessSecret string
	ResetSecret  string
	VerifySecret string
	AccessTTL    time.Duration
	ResetTTL     time.Duration
	VerifyTTL    time.Duration
}

// Claims is the payload of every token issued here.
type Claims struct {
	jwt.RegisteredClaims
	// PasswordFingerprint ties a reset token to the password it replaces.
	PasswordFingerprint string `json:"password_fgpt,omitempty"`
	Email               string `json:"email,omitempty"`
}

// TokenManager issues and checks HS256 tokens.
type TokenManager struct {
	cfg Config
	now func() time.Time
}

// NewTokenManager fills zero lifetimes with defaults.
func NewTokenManager(cfg Config) *TokenManager {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = DefaultVerifyTTL
	}
	return &TokenManager{cfg: cfg, now: time.Now}
}

// AccessTTL is the lifetime of login tokens.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.cfg.AccessTTL
}

// IssueAccess mints a login token for userID.
func (m *TokenManager) IssueAccess(userID int64) (string, error) {
	return m.sign(m.cfg.AccessSecret, m.claims(userID, AudienceAccess, m.cfg.AccessTTL))
}

// ParseAccess returns the user id carried by a login token.
func (m *TokenManager) ParseAccess(token string) (int64, error) {
	claims, err := m.parse(token, m.cfg.AccessSecret, AudienceAccess)
	if err != nil {
		return 0, err
	}
	return subject(claims)
}

// IssueReset mints a password-reset token bound to the current password hash.
func (m *TokenManager) IssueReset(userID int64, passwordHash string) (string, error) {
	claims := m.claims(userID, AudienceReset, m.cfg.ResetTTL)
	claims.PasswordFingerprint = Fingerprint(passwordHash)
	return m.sign(m.cfg.ResetSecret, claims)
}

// ParseReset returns the user id and password fingerprint of a reset token.
func (m *TokenManager) ParseReset(token string) (int64, string, error) {
	claims, err := m.parse(token, m.cfg.ResetSecret, AudienceReset)
	if err != nil {
		return 0, "", err
	}
	id, err := subject(claims)
	if err != nil {
		return 0, "", err
	}
	return id, claims.PasswordFingerprint, nil
}

// IssueVerify mints an email-verification token for the given address.
func (m *TokenManager) IssueVerify(userID int64, email string) (string, error) {
	claims := m.claims(userID, AudienceVerify, m.cfg.VerifyTTL)
	claims.Email = email
	return m.sign(m.cfg.VerifySecret, claims)
}

// ParseVerify returns the user id and email of a verification token.
func (m *TokenManager) ParseVerify(token string) (int64, string, error) {
	claims, err := m.parse(token, m.cfg.VerifySecret, AudienceVerify)
	if err != nil {
		return 0, "", err
	}
	id, err := subject(claims)
	if err != nil {
		return 0, "", err
	}
	return id, claims.Email, nil
}

// Fingerprint derives a stable digest of a password hash.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])
}

func (m *TokenManager) claims(userID int64, audience string, ttl time.Duration) *Claims {
	now := m.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *TokenManager) sign(secret string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(token, secret, audience string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func subject(claims *Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
