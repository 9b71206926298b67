package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devmsrajput/yt-backend/internal/models"
)

var (
	// ErrSessionNotFound means the refresh token is unknown, already rotated or revoked.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired means the refresh token existed but outlived its TTL. It is gone
	// afterwards either way.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidToken covers access tokens that are malformed, expired or wrongly signed.
	ErrInvalidToken = errors.New("invalid access token")
)

// SessionStore persists refresh sessions. Take consumes a token: it returns the session and
// removes it in one step, so a token can be exchanged at most once.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Take(ctx context.Context, refreshToken string) (Session, error)
	DeleteForUser(ctx context.Context, userID string) error
}

// Session is one outstanding refresh token.
type Session struct {
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

const issuer = "yt-backend"

// Manager signs short-lived HS256 access tokens and rotates opaque refresh tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessions   SessionStore
	now        func() time.Time
}

// NewManager panics on an empty secret or a nil store; both are wiring mistakes.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, sessions SessionStore) *Manager {
	switch {
	case secret == "":
		panic("auth: signing secret must not be empty")
	case sessions == nil:
		panic("auth: session store must not be nil")
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessions:   sessions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue starts a session for userID and returns its access and refresh tokens.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("auth: issue without a user id")
	}
	now := m.now()

	access, accessExpires, err := m.signAccess(userID, now)
	if err != nil {
		return models.SessionTokens{}, err
	}

	session := Session{RefreshToken: rand.Text(), UserID: userID, ExpiresAt: now.Add(m.refreshTTL)}
	if err := m.sessions.Save(ctx, session); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store session: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (m *Manager) signAccess(userID string, now time.Time) (string, time.Time, error) {
	expires := now.Add(m.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses an access token and returns the identity it carries.
func (m *Manager) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID}, nil
}

// Refresh consumes refreshToken and starts a new session for its user.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.sessions.Take(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if m.now().After(session.ExpiresAt) {
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}
	return m.Issue(ctx, session.UserID)
}

// RevokeAll ends every session of userID, as after a password change.
func (m *Manager) RevokeAll(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("auth: revoke without a user id")
	}
	return m.sessions.DeleteForUser(ctx, userID)
}
