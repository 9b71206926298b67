package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/devmsrajput/yt-backend/internal/models"
)

const (
	// AccessCookie carries the access token for browser clients.
	AccessCookie = "accessToken"
	// RefreshCookie carries the refresh token for browser clients.
	RefreshCookie = "refreshToken"
)

// AccessToken reads the access token from the cookie or, failing that, a bearer Authorization header.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RefreshToken reads the refresh token cookie.
func RefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// SetSessionCookies writes both tokens as HTTP-only cookies.
func SetSessionCookies(w http.ResponseWriter, tokens models.SessionTokens, secure bool) {
	http.SetCookie(w, sessionCookie(AccessCookie, tokens.AccessToken, tokens.AccessExpiresAt, secure))
	http.SetCookie(w, sessionCookie(RefreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt, secure))
}

// ClearSessionCookies expires both token cookies.
func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := sessionCookie(name, "", time.Unix(0, 0), secure)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func sessionCookie(name, value string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
