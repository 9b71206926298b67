package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/logging"
)

// Authenticator resolves an access token to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// RequireAuth rejects the request with a 401 envelope unless it carries a valid access token for a
// live account. Nothing after a rejection runs.
func RequireAuth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if gate == nil {
				envelope.Error(ctx, w, http.StatusInternalServerError, "authentication unavailable")
				return
			}

			id, err := gate.Authenticate(ctx, auth.AccessToken(r))
			if err != nil {
				if unauthorized(err) {
					logging.FromContext(ctx).Debug("request rejected by auth gate", "error", err)
					envelope.Error(ctx, w, http.StatusUnauthorized, "unauthorized request")
					return
				}
				logging.FromContext(ctx).Error("auth gate failed", "error", err)
				envelope.Error(ctx, w, http.StatusInternalServerError, "unable to verify session")
				return
			}

			ctx = auth.WithIdentity(ctx, id)
			ctx = logging.With(ctx, "user_id", id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(err error) bool {
	return errors.Is(err, auth.ErrMissingToken) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrUnknownUser)
}
