package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type verifierStub struct {
	id  Identity
	err error
}

func (v verifierStub) Verify(string) (Identity, error) { return v.id, v.err }

type userCheckerStub struct {
	exists bool
	err    error
	calls  int
}

func (u *userCheckerStub) Exists(context.Context, string) (bool, error) {
	u.calls++
	return u.exists, u.err
}

func TestGateAuthenticate(t *testing.T) {
	users := &userCheckerStub{exists: true}
	gate := NewGate(verifierStub{id: Identity{UserID: "u-1"}}, users, time.Minute)

	for i := 0; i < 3; i++ {
		id, err := gate.Authenticate(context.Background(), "token")
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		if id.UserID != "u-1" {
			t.Fatalf("unexpected identity %+v", id)
		}
	}
	if users.calls != 1 {
		t.Fatalf("expected cached account lookup, got %d calls", users.calls)
	}

	gate.Forget("u-1")
	if _, err := gate.Authenticate(context.Background(), "token"); err != nil {
		t.Fatalf("authenticate after forget: %v", err)
	}
	if users.calls != 2 {
		t.Fatalf("expected lookup after forget, got %d calls", users.calls)
	}
}

func TestGateRejections(t *testing.T) {
	storeErr := errors.New("db down")

	cases := []struct {
		name string
		gate *Gate
		want error
	}{
		{"invalidToken", NewGate(verifierStub{err: ErrInvalidToken}, &userCheckerStub{exists: true}, time.Minute), ErrInvalidToken},
		{"missingToken", NewGate(verifierStub{err: ErrMissingToken}, &userCheckerStub{exists: true}, time.Minute), ErrMissingToken},
		{"deletedUser", NewGate(verifierStub{id: Identity{UserID: "u-1"}}, &userCheckerStub{exists: false}, time.Minute), ErrUnknownUser},
		{"storeFailure", NewGate(verifierStub{id: Identity{UserID: "u-1"}}, &userCheckerStub{err: storeErr}, time.Minute), storeErr},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.gate.Authenticate(context.Background(), "token"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on empty context")
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: "u-9"})
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UserID != "u-9" {
		t.Fatalf("unexpected identity %+v", id)
	}
}
