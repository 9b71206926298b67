package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/ownership"
)

const (
	aliceID = "11111111-1111-4111-8111-111111111111"
	bobID   = "22222222-2222-4222-8222-222222222222"
	videoID = "33333333-3333-4333-8333-333333333333"
	otherID = "44444444-4444-4444-8444-444444444444"
)

var fixedNow = func() time.Time {
	return time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
}

type envelopeBody[T any] struct {
	Status  int    `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelopeBody[T] {
	t.Helper()
	var body envelopeBody[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if body.Status != rec.Code {
		t.Fatalf("expected envelope status %d got %d", rec.Code, body.Status)
	}
	return body
}

// serve routes req through a chi router registered at pattern so path parameters resolve, acting
// as userID when it is not empty.
func serve(handler http.HandlerFunc, pattern string, req *http.Request, userID string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.MethodFunc(req.Method, pattern, handler)
	if userID != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formPart struct {
	field    string
	filename string
	body     string
}

func multipartRequest(t *testing.T, method, target string, parts ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		var (
			w   io.Writer
			err error
		)
		if p.filename == "" {
			w, err = mw.CreateFormField(p.field)
		} else {
			w, err = mw.CreateFormFile(p.field, p.filename)
		}
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func stagedEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	return len(entries)
}

type hostStub struct {
	mu       sync.Mutex
	uploaded []string
	failOn   string
}

func (h *hostStub) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	if h.failOn != "" && strings.HasPrefix(key, h.failOn) {
		return "", errors.New("bucket unavailable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	location := "https://cdn.test/" + key
	h.uploaded = append(h.uploaded, location)
	return location, nil
}

func (h *hostStub) Delete(context.Context, string) error { return nil }

type janitorStub struct {
	mu       sync.Mutex
	released []string
	reasons  []string
	err      error
}

func (j *janitorStub) Release(_ context.Context, reason string, locations ...string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reasons = append(j.reasons, reason)
	for _, loc := range locations {
		if loc != "" {
			j.released = append(j.released, loc)
		}
	}
	return j.err
}

type proberStub struct {
	duration int64
	err      error
}

func (p proberStub) Duration(context.Context, string) (int64, error) {
	return p.duration, p.err
}

type guardStub struct {
	decision ownership.Decision
	err      error
	calls    int
}

func (g *guardStub) Check(context.Context, string, ownership.Kind, string) (ownership.Decision, error) {
	g.calls++
	return g.decision, g.err
}

func allowAll() *guardStub { return &guardStub{decision: ownership.Allowed} }
