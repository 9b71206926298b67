package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/logging"
	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/ownership"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/repositories"
	"github.com/devmsrajput/yt-backend/internal/security"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

// DefaultBodyLimit caps JSON request bodies when no limit is configured.
const DefaultBodyLimit int64 = 16 * 1024

var errEmptyBody = errors.New("request body is required")

// respondError writes the envelope matching err. notFound is the message used for missing records.
func respondError(ctx context.Context, w http.ResponseWriter, err error, notFound string) {
	status, message := classify(err, notFound)
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request error", "error", err)
	}
	envelope.Error(ctx, w, status, message)
}

func classify(err error, notFound string) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case validation.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case query.IsInvalidParams(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errEmptyBody):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &maxBytes), errors.Is(err, media.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.Is(err, media.ErrNotMultipart), errors.Is(err, media.ErrTooManyFiles), errors.Is(err, media.ErrUnexpectedField):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, notFound
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict, "resource already exists"
	case errors.Is(err, repositories.ErrInvalid):
		return http.StatusBadRequest, "request violates a data constraint"
	case errors.Is(err, media.ErrHostUnavailable), errors.Is(err, media.ErrProberUnavailable):
		return http.StatusBadGateway, "media service unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON reads a single JSON object of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return &validation.Error{Field: "body", Tag: "json"}
	}
	return nil
}

// pathID reads a UUID path parameter and returns its canonical form.
func pathID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &validation.Error{Field: name, Tag: "uuid"}
	}
	return id.String(), nil
}

// optionalID reads a UUID query parameter, falling back when absent.
func optionalID(values url.Values, name, fallback string) (string, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return fallback, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &validation.Error{Field: name, Tag: "uuid"}
	}
	return id.String(), nil
}

// callerID returns the authenticated user. Routes behind RequireAuth always have one.
func callerID(r *http.Request) string {
	id, _ := auth.IdentityFromContext(r.Context())
	return id.UserID
}

// authorize writes 404 or 403 and returns false unless the caller owns the entity.
func authorize(ctx context.Context, w http.ResponseWriter, guard OwnershipChecker, actorID string, kind ownership.Kind, entityID string) bool {
	if guard == nil {
		logging.FromContext(ctx).Error("ownership guard unavailable")
		envelope.Error(ctx, w, http.StatusInternalServerError, "internal server error")
		return false
	}
	decision, err := guard.Check(ctx, actorID, kind, entityID)
	if err != nil {
		respondError(ctx, w, err, "")
		return false
	}
	switch decision {
	case ownership.Allowed:
		return true
	case ownership.Denied:
		envelope.Error(ctx, w, http.StatusForbidden, fmt.Sprintf("you are not the owner of this %s", kind))
	default:
		envelope.Error(ctx, w, http.StatusNotFound, fmt.Sprintf("%s not found", kind))
	}
	return false
}

// unavailable reports a missing dependency.
func unavailable(ctx context.Context, w http.ResponseWriter, what string) {
	logging.FromContext(ctx).Error("handler dependency unavailable", "dependency", what)
	envelope.Error(ctx, w, http.StatusInternalServerError, "service unavailable")
}

func nowUTC(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}

var (
	defaultValidator = sync.OnceValue(validation.New)
	defaultSanitizer = sync.OnceValue(security.NewTextSanitizer)
)

func validatorOr(v *validation.Validator) *validation.Validator {
	if v != nil {
		return v
	}
	return defaultValidator()
}

func sanitizerOr(s security.Sanitizer) security.Sanitizer {
	if s != nil {
		return s
	}
	return defaultSanitizer()
}

func recorderOr(r metrics.Recorder) metrics.Recorder {
	if r != nil {
		return r
	}
	return metrics.Nop{}
}

// affected sums the rows removed by every cascade step.
func affected(result models.CascadeResult) int64 {
	var total int64
	for _, step := range result.Steps {
		total += step.Affected
	}
	return total
}
