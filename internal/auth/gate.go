package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrMissingToken indicates the request carried no access token.
	ErrMissingToken = errors.New("access token missing")
	// ErrUnknownUser indicates a valid token for an account that no longer exists.
	ErrUnknownUser = errors.New("token subject no longer exists")
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// UserChecker confirms that an account still exists.
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Gate authenticates requests: a valid signature and a live account are both required.
type Gate struct {
	tokens TokenVerifier
	users  UserChecker
	known  *userCache
}

// NewGate builds a Gate. Positive account lookups are cached for cacheTTL.
func NewGate(tokens TokenVerifier, users UserChecker, cacheTTL time.Duration) *Gate {
	return &Gate{tokens: tokens, users: users, known: newUserCache(cacheTTL)}
}

// Authenticate returns the identity behind token or the reason it was rejected.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, error) {
	if g == nil || g.tokens == nil {
		return Identity{}, errors.New("auth gate unavailable")
	}

	id, err := g.tokens.Verify(token)
	if err != nil {
		return Identity{}, err
	}

	if g.users == nil || g.known.has(id.UserID) {
		return id, nil
	}

	ok, err := g.users.Exists(ctx, id.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("check token subject: %w", err)
	}
	if !ok {
		return Identity{}, ErrUnknownUser
	}
	g.known.add(id.UserID)
	return id, nil
}

// Forget drops a cached account, for instance after logout.
func (g *Gate) Forget(userID string) {
	if g != nil {
		g.known.remove(userID)
	}
}

type userCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]time.Time
}

func newUserCache(ttl time.Duration) *userCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &userCache{ttl: ttl, now: time.Now, items: make(map[string]time.Time)}
}

func (c *userCache) has(userID string) bool {
	c.mu.RLock()
	expires, ok := c.items[userID]
	c.mu.RUnlock()
	return ok && c.now().Before(expires)
}

func (c *userCache) add(userID string) {
	now := c.now()
	c.mu.Lock()
	for id, expires := range c.items {
		if !now.Before(expires) {
			delete(c.items, id)
		}
	}
	c.items[userID] = now.Add(c.ttl)
	c.mu.Unlock()
}

func (c *userCache) remove(userID string) {
	c.mu.Lock()
	delete(c.items, userID)
	c.mu.Unlock()
}
