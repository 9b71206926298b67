package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingerStub struct{ err error }

func (p pingerStub) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name   string
		checks []HealthCheck
		status int
		state  string
		want   map[string]string
	}{
		{
			name:   "no checks",
			status: http.StatusOK,
			state:  "ok",
			want:   map[string]string{},
		},
		{
			name:   "all reachable",
			checks: []HealthCheck{{"database", pingerStub{}}, {"object_store", pingerStub{}}},
			status: http.StatusOK,
			state:  "ok",
			want:   map[string]string{"database": "ok", "object_store": "ok"},
		},
		{
			name:   "object store down",
			checks: []HealthCheck{{"database", pingerStub{}}, {"object_store", pingerStub{err: errors.New("no such bucket")}}},
			status: http.StatusServiceUnavailable,
			state:  "degraded",
			want:   map[string]string{"database": "ok", "object_store": "unreachable"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler{Checks: tc.checks}.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Fatalf("expected json content type got %s", got)
			}
			body := decodeBody[healthReport](t, rec)
			if body.Data.Status != tc.state || len(body.Data.Checks) != len(tc.want) {
				t.Fatalf("unexpected report %+v", body.Data)
			}
			for name, state := range tc.want {
				if body.Data.Checks[name] != state {
					t.Fatalf("expected %s %s got %+v", name, state, body.Data.Checks)
				}
			}
		})
	}
}
