package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/logging"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope.Response {
	t.Helper()
	var body envelope.Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return body
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/video", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Status != http.StatusInternalServerError || body.Data != nil {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), `"status":500`) {
		t.Fatalf("expected panic and completion logs, got %s", buf.String())
	}
}

func TestRequestLoggerRequestIDs(t *testing.T) {
	const incoming = "6f1c2b9e-4d7a-4c3e-9b1a-2f5e8d7c6b4a"

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "well formed id kept", header: incoming, keep: true},
		{name: "garbage replaced", header: "not-an-id"},
		{name: "missing minted"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logging.RequestIDFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("expected header to match context id got %q and %q", got, seen)
			}
			if tc.keep != (got == incoming) {
				t.Fatalf("unexpected request id %q", got)
			}
		})
	}
}

func TestRequestLoggerLevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := chi.NewRouter()
	router.Use(RequestLogger(logger))
	router.Get("/video/{videoId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/video/abc", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["level"] != "WARN" || entry["route"] != "/video/{videoId}" || entry["status"] != float64(404) {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

type limiterStub struct{ allow bool }

func (l limiterStub) Allow(string) bool { return l.allow }

func TestThrottle(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	Throttle(limiterStub{allow: false}, "login")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 got %d", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected envelope %+v", body)
	}

	rec = httptest.NewRecorder()
	Throttle(nil, "login")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected nil limiter to pass, got %d", rec.Code)
	}
}

func TestKeyedLimiterAllowsBurstPerKey(t *testing.T) {
	limiter := NewKeyedLimiter(LimiterConfig{Requests: 1, Window: time.Hour, Burst: 2})

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("b") {
		t.Fatal("expected independent key to be allowed")
	}
	if limiter.RetryAfter() != time.Hour {
		t.Fatalf("expected retry after 1h got %v", limiter.RetryAfter())
	}
}

func TestKeyedLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(LimiterConfig{Requests: 1, Window: time.Second, Burst: 1, Idle: time.Minute})
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	limiter.Allow("b")
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 tracked keys got %d", limiter.Len())
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("c")
	if limiter.Len() != 1 {
		t.Fatalf("expected idle keys swept got %d", limiter.Len())
	}
}

func TestThrottleScopesAndRetryAfter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	limiter := NewKeyedLimiter(LimiterConfig{Requests: 2, Window: time.Minute, Burst: 1})
	login := Throttle(limiter, "login")(ok)
	signup := Throttle(limiter, "signup")(ok)

	send := func(h http.Handler, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(login, "10.0.0.1:5555"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first login allowed got %d", rec.Code)
	}
	rec := send(login, "10.0.0.1:6666")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected 429 with Retry-After 30 got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec := send(signup, "10.0.0.1:5555"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected separate scope allowed got %d", rec.Code)
	}
	if rec := send(login, "10.0.0.2:5555"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected other address allowed got %d", rec.Code)
	}
}

type authenticatorStub struct {
	id    auth.Identity
	err   error
	token string
}

func (a *authenticatorStub) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	a.token = token
	return a.id, a.err
}

func TestRequireAuth(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "valid token", wantStatus: http.StatusNoContent},
		{name: "missing token", err: auth.ErrMissingToken, wantStatus: http.StatusUnauthorized},
		{name: "bad signature", err: auth.ErrInvalidToken, wantStatus: http.StatusUnauthorized},
		{name: "deleted account", err: auth.ErrUnknownUser, wantStatus: http.StatusUnauthorized},
		{name: "store failure", err: errors.New("connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := &authenticatorStub{id: auth.Identity{UserID: "user-1"}, err: tc.err}
			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				id, ok := auth.IdentityFromContext(r.Context())
				if !ok || id.UserID != "user-1" {
					t.Fatalf("expected identity on context, got %+v", id)
				}
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-profile", nil)
			req.Header.Set("Authorization", "Bearer header-token")
			rec := httptest.NewRecorder()
			RequireAuth(gate)(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
			if reached != (tc.err == nil) {
				t.Fatalf("handler reached = %v with error %v", reached, tc.err)
			}
			if gate.token != "header-token" {
				t.Fatalf("expected bearer token to be forwarded, got %q", gate.token)
			}
		})
	}
}

func TestRequireAuthPrefersCookie(t *testing.T) {
	gate := &authenticatorStub{id: auth.Identity{UserID: "user-1"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")

	RequireAuth(gate)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)
	if gate.token != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", gate.token)
	}
}

type requestRecorder struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (r *requestRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, method+" "+route)
	r.status = append(r.status, status)
}
func (r *requestRecorder) RecordToggle(string, bool)   {}
func (r *requestRecorder) RecordCascade(string, int64) {}
func (r *requestRecorder) RecordMediaDeletion(string)  {}
func (r *requestRecorder) RecordUpload(string, int64)  {}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	recorder := &requestRecorder{}
	router := chi.NewRouter()
	router.Use(Instrument(recorder))
	router.Get("/video/{videoId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video/7b0c4d7e-0000-4000-8000-000000000001", nil))

	if len(recorder.routes) != 1 || recorder.routes[0] != "GET /video/{videoId}" {
		t.Fatalf("unexpected routes %v", recorder.routes)
	}
	if recorder.status[0] != http.StatusAccepted {
		t.Fatalf("unexpected status %v", recorder.status)
	}
}
