package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/repositories"
)

type userStoreStub struct {
	users     map[string]models.User
	created   models.User
	createErr error
	updateErr error
	history   query.Page
}

func newUserStore(users ...models.User) *userStoreStub {
	s := &userStoreStub{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStoreStub) Create(_ context.Context, user models.User) error {
	s.created = user
	if s.createErr != nil {
		return s.createErr
	}
	s.users[user.ID] = user
	return nil
}

func (s *userStoreStub) FindByID(_ context.Context, id string) (models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *userStoreStub) FindByLogin(_ context.Context, login string) (models.User, error) {
	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *userStoreStub) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = at
	s.users[id] = u
	return nil
}

func (s *userStoreStub) UpdateProfile(_ context.Context, id, fullName, email string, at time.Time) (models.User, error) {
	if s.updateErr != nil {
		return models.User{}, s.updateErr
	}
	u := s.users[id]
	u.FullName, u.Email, u.UpdatedAt = fullName, email, at
	s.users[id] = u
	return u, nil
}

func (s *userStoreStub) ReplaceAvatar(_ context.Context, id, location string, _ time.Time) (string, error) {
	u, ok := s.users[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	previous := u.AvatarURL
	u.AvatarURL = location
	s.users[id] = u
	return previous, nil
}

func (s *userStoreStub) ReplaceCover(_ context.Context, id, location string, _ time.Time) (string, error) {
	u, ok := s.users[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	previous := u.CoverURL
	u.CoverURL = location
	s.users[id] = u
	return previous, nil
}

func (s *userStoreStub) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	for _, u := range s.users {
		if u.Username == username {
			return models.ChannelProfile{ID: u.ID, Username: u.Username}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *userStoreStub) WatchHistory(_ context.Context, _ string, page query.Page) (models.Page[models.HistoryEntry], error) {
	s.history = page
	return models.Page[models.HistoryEntry]{Metadata: models.PageMeta{PageNumber: page.Number, PageSize: page.Size}}, nil
}

type sessionStub struct {
	tokens     models.SessionTokens
	issuedFor  string
	refreshErr error
	revoked    string
}

func (s *sessionStub) Issue(_ context.Context, userID string) (models.SessionTokens, error) {
	s.issuedFor = userID
	return s.tokens, nil
}

func (s *sessionStub) Refresh(_ context.Context, token string) (models.SessionTokens, error) {
	if s.refreshErr != nil {
		return models.SessionTokens{}, s.refreshErr
	}
	return s.tokens, nil
}

func (s *sessionStub) RevokeAll(_ context.Context, userID string) error {
	s.revoked = userID
	return nil
}

type accountCacheStub struct{ forgotten []string }

func (a *accountCacheStub) Forget(userID string) { a.forgotten = append(a.forgotten, userID) }

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func signUpParts(username, email string, files ...formPart) []formPart {
	parts := []formPart{
		{field: "username", body: username},
		{field: "fullName", body: "Alice Liddell"},
		{field: "email", body: email},
		{field: "password", body: "Wonder1and"},
	}
	return append(parts, files...)
}

func TestUserHandlerSignUp(t *testing.T) {
	users := newUserStore()
	host := &hostStub{}
	handler := UserHandler{
		Users:   users,
		Stager:  media.NewStager(t.TempDir(), 1<<20),
		Media:   host,
		Janitor: &janitorStub{},
		NowFunc: fixedNow,
	}

	req := multipartRequest(t, http.MethodPost, "/signup", signUpParts("Alice_01", "Alice@Example.com",
		formPart{field: "avatarImage", filename: "me.png", body: "png"},
		formPart{field: "coverImage", filename: "cover.jpg", body: "jpg"},
	)...)
	rec := serve(handler.SignUp, "/signup", req, "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[models.User](t, rec)
	if body.Message != "User registered successfully" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if users.created.Username != "alice_01" || users.created.Email != "alice@example.com" {
		t.Fatalf("expected normalised credentials got %+v", users.created)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users.created.Password), []byte("Wonder1and")); err != nil {
		t.Fatalf("expected stored bcrypt hash: %v", err)
	}
	if !strings.HasPrefix(users.created.AvatarURL, "https://cdn.test/avatars/") || !strings.HasPrefix(users.created.CoverURL, "https://cdn.test/covers/") {
		t.Fatalf("unexpected media locations %+v", users.created)
	}
	if strings.Contains(rec.Body.String(), users.created.Password) {
		t.Fatal("expected password hash to stay out of the response")
	}
}

func TestUserHandlerSignUpRejections(t *testing.T) {
	existing := models.User{ID: bobID, Username: "bob_smith", Email: "bob@example.com"}

	cases := []struct {
		name   string
		parts  []formPart
		status int
	}{
		{
			name:   "missing avatar",
			parts:  signUpParts("alice_01", "alice@example.com"),
			status: http.StatusBadRequest,
		},
		{
			name:   "weak password",
			parts:  append(signUpParts("alice_01", "alice@example.com")[:3], formPart{field: "password", body: "short"}, formPart{field: "avatarImage", filename: "a.png", body: "x"}),
			status: http.StatusBadRequest,
		},
		{
			name:   "username taken",
			parts:  signUpParts("bob_smith", "alice@example.com", formPart{field: "avatarImage", filename: "a.png", body: "x"}),
			status: http.StatusConflict,
		},
		{
			name:   "email taken",
			parts:  signUpParts("alice_01", "BOB@example.com", formPart{field: "avatarImage", filename: "a.png", body: "x"}),
			status: http.StatusConflict,
		},
		{
			name:   "unexpected file",
			parts:  signUpParts("alice_01", "alice@example.com", formPart{field: "resume", filename: "cv.pdf", body: "x"}),
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := &hostStub{}
			dir := t.TempDir()
			handler := UserHandler{
				Users:  newUserStore(existing),
				Stager: media.NewStager(dir, 1<<20),
				Media:  host,
			}
			rec := serve(handler.SignUp, "/signup", multipartRequest(t, http.MethodPost, "/signup", tc.parts...), "")
			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if len(host.uploaded) != 0 {
				t.Fatalf("expected nothing uploaded got %v", host.uploaded)
			}
			if entries := stagedEntries(t, dir); entries != 0 {
				t.Fatalf("expected staging dir empty got %d entries", entries)
			}
		})
	}
}

func TestUserHandlerSignUpRollsBackOnCoverFailure(t *testing.T) {
	janitor := &janitorStub{}
	dir := t.TempDir()
	handler := UserHandler{
		Users:   newUserStore(),
		Stager:  media.NewStager(dir, 1<<20),
		Media:   &hostStub{failOn: "covers/"},
		Janitor: janitor,
	}

	req := multipartRequest(t, http.MethodPost, "/signup", signUpParts("alice_01", "alice@example.com",
		formPart{field: "avatarImage", filename: "me.png", body: "png"},
		formPart{field: "coverImage", filename: "cover.jpg", body: "jpg"},
	)...)
	rec := serve(handler.SignUp, "/signup", req, "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 got %d", rec.Code)
	}
	if len(janitor.released) != 1 || !strings.Contains(janitor.released[0], "avatars/") {
		t.Fatalf("expected avatar released got %v", janitor.released)
	}
	if entries := stagedEntries(t, dir); entries != 0 {
		t.Fatalf("expected staging dir empty got %d entries", entries)
	}
}

func TestUserHandlerLogin(t *testing.T) {
	alice := models.User{ID: aliceID, Username: "alice_01", Email: "alice@example.com", Password: hashed(t, "Wonder1and")}
	tokens := models.SessionTokens{AccessToken: "access", RefreshToken: "refresh", AccessExpiresAt: fixedNow().Add(time.Hour)}

	cases := []struct {
		name    string
		payload map[string]string
		status  int
	}{
		{name: "username", payload: map[string]string{"username": "ALICE_01", "password": "Wonder1and"}, status: http.StatusOK},
		{name: "email", payload: map[string]string{"email": "alice@example.com", "password": "Wonder1and"}, status: http.StatusOK},
		{name: "wrong password", payload: map[string]string{"username": "alice_01", "password": "Wrong1pass"}, status: http.StatusUnauthorized},
		{name: "unknown user", payload: map[string]string{"username": "nobody", "password": "Wonder1and"}, status: http.StatusUnauthorized},
		{name: "missing login", payload: map[string]string{"password": "Wonder1and"}, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &sessionStub{tokens: tokens}
			handler := UserHandler{Users: newUserStore(alice), Sessions: sessions}

			rec := serve(handler.Login, "/login", jsonRequest(t, http.MethodPost, "/login", tc.payload), "")
			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status != http.StatusOK {
				if len(rec.Result().Cookies()) != 0 {
					t.Fatal("expected no cookies on failure")
				}
				return
			}

			body := decodeBody[sessionResponse](t, rec)
			if body.Data.AccessToken != "access" || body.Data.User.ID != aliceID {
				t.Fatalf("unexpected session payload %+v", body.Data)
			}
			if sessions.issuedFor != aliceID {
				t.Fatalf("expected session for %s got %s", aliceID, sessions.issuedFor)
			}
			cookies := map[string]*http.Cookie{}
			for _, c := range rec.Result().Cookies() {
				cookies[c.Name] = c
			}
			if c := cookies[auth.AccessCookie]; c == nil || c.Value != "access" || !c.HttpOnly {
				t.Fatalf("unexpected access cookie %+v", c)
			}
			if c := cookies[auth.RefreshCookie]; c == nil || c.Value != "refresh" {
				t.Fatalf("unexpected refresh cookie %+v", c)
			}
		})
	}
}

func TestUserHandlerRefresh(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		handler := UserHandler{Sessions: &sessionStub{tokens: models.SessionTokens{AccessToken: "next"}}}
		req := jsonRequest(t, http.MethodPost, "/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: "refresh"})

		rec := serve(handler.Refresh, "/refresh-token", req, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200 got %d", rec.Code)
		}
		if body := decodeBody[models.SessionTokens](t, rec); body.Data.AccessToken != "next" {
			t.Fatalf("unexpected tokens %+v", body.Data)
		}
	})

	t.Run("body", func(t *testing.T) {
		handler := UserHandler{Sessions: &sessionStub{tokens: models.SessionTokens{AccessToken: "next"}}}
		req := jsonRequest(t, http.MethodPost, "/refresh-token", map[string]string{"refreshToken": "refresh"})

		rec := serve(handler.Refresh, "/refresh-token", req, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200 got %d", rec.Code)
		}
	})

	t.Run("missing", func(t *testing.T) {
		handler := UserHandler{Sessions: &sessionStub{}}
		rec := serve(handler.Refresh, "/refresh-token", jsonRequest(t, http.MethodPost, "/refresh-token", nil), "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 got %d", rec.Code)
		}
	})

	t.Run("expired", func(t *testing.T) {
		handler := UserHandler{Sessions: &sessionStub{refreshErr: auth.ErrRefreshTokenExpired}}
		req := jsonRequest(t, http.MethodPost, "/refresh-token", map[string]string{"refreshToken": "stale"})

		rec := serve(handler.Refresh, "/refresh-token", req, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 got %d", rec.Code)
		}
		for _, c := range rec.Result().Cookies() {
			if c.MaxAge >= 0 {
				t.Fatalf("expected cookie %s cleared got %+v", c.Name, c)
			}
		}
	})
}

func TestUserHandlerLogout(t *testing.T) {
	sessions := &sessionStub{}
	accounts := &accountCacheStub{}
	handler := UserHandler{Sessions: sessions, Accounts: accounts}

	rec := serve(handler.Logout, "/logout", jsonRequest(t, http.MethodPost, "/logout", nil), aliceID)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if sessions.revoked != aliceID {
		t.Fatalf("expected sessions of %s revoked got %q", aliceID, sessions.revoked)
	}
	if len(accounts.forgotten) != 1 || accounts.forgotten[0] != aliceID {
		t.Fatalf("expected cached account forgotten got %v", accounts.forgotten)
	}
	if len(rec.Result().Cookies()) != 2 {
		t.Fatalf("expected both cookies cleared got %v", rec.Result().Cookies())
	}
}

func TestUserHandlerChangePassword(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]string
		status  int
	}{
		{name: "success", payload: map[string]string{"oldPassword": "Wonder1and", "newPassword": "Looking1Glass"}, status: http.StatusOK},
		{name: "wrong old password", payload: map[string]string{"oldPassword": "Nope1nope", "newPassword": "Looking1Glass"}, status: http.StatusBadRequest},
		{name: "weak new password", payload: map[string]string{"oldPassword": "Wonder1and", "newPassword": "weak"}, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := newUserStore(models.User{ID: aliceID, Password: hashed(t, "Wonder1and")})
			handler := UserHandler{Users: users, NowFunc: fixedNow}

			rec := serve(handler.ChangePassword, "/change-password", jsonRequest(t, http.MethodPost, "/change-password", tc.payload), aliceID)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK {
				if err := bcrypt.CompareHashAndPassword([]byte(users.users[aliceID].Password), []byte("Looking1Glass")); err != nil {
					t.Fatalf("expected new password stored: %v", err)
				}
			}
		})
	}
}

func TestUserHandlerUpdateProfile(t *testing.T) {
	alice := models.User{ID: aliceID, FullName: "Alice Liddell", Email: "alice@example.com"}

	t.Run("keeps omitted fields", func(t *testing.T) {
		handler := UserHandler{Users: newUserStore(alice), NowFunc: fixedNow}
		rec := serve(handler.UpdateProfile, "/update-profile", jsonRequest(t, http.MethodPatch, "/update-profile", map[string]string{"email": "New@Example.com"}), aliceID)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200 got %d", rec.Code)
		}
		body := decodeBody[models.User](t, rec)
		if body.Data.Email != "new@example.com" || body.Data.FullName != "Alice Liddell" {
			t.Fatalf("unexpected profile %+v", body.Data)
		}
	})

	t.Run("email in use", func(t *testing.T) {
		users := newUserStore(alice)
		users.updateErr = repositories.ErrConflict
		handler := UserHandler{Users: users}
		rec := serve(handler.UpdateProfile, "/update-profile", jsonRequest(t, http.MethodPatch, "/update-profile", map[string]string{"email": "bob@example.com"}), aliceID)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409 got %d", rec.Code)
		}
	})

	t.Run("empty", func(t *testing.T) {
		handler := UserHandler{Users: newUserStore(alice)}
		rec := serve(handler.UpdateProfile, "/update-profile", jsonRequest(t, http.MethodPatch, "/update-profile", map[string]string{}), aliceID)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 got %d", rec.Code)
		}
	})
}

func TestUserHandlerUpdateAvatarReleasesPrevious(t *testing.T) {
	users := newUserStore(models.User{ID: aliceID, AvatarURL: "https://cdn.test/avatars/old.png"})
	janitor := &janitorStub{}
	handler := UserHandler{
		Users:   users,
		Stager:  media.NewStager(t.TempDir(), 1<<20),
		Media:   &hostStub{},
		Janitor: janitor,
	}

	req := multipartRequest(t, http.MethodPatch, "/upload-avatar", formPart{field: "avatarImage", filename: "new.png", body: "png"})
	rec := serve(handler.UpdateAvatar, "/upload-avatar", req, aliceID)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(users.users[aliceID].AvatarURL, "https://cdn.test/avatars/"+aliceID) {
		t.Fatalf("unexpected avatar %q", users.users[aliceID].AvatarURL)
	}
	if len(janitor.released) != 1 || janitor.released[0] != "https://cdn.test/avatars/old.png" {
		t.Fatalf("expected old avatar released got %v", janitor.released)
	}
}

func TestUserHandlerUpdateCoverRequiresFile(t *testing.T) {
	dir := t.TempDir()
	handler := UserHandler{Users: newUserStore(models.User{ID: aliceID}), Stager: media.NewStager(dir, 1<<20), Media: &hostStub{}}

	req := multipartRequest(t, http.MethodPatch, "/upload-cover", formPart{field: "note", body: "nothing"})
	rec := serve(handler.UpdateCover, "/upload-cover", req, aliceID)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if entries := stagedEntries(t, dir); entries != 0 {
		t.Fatalf("expected staging dir empty got %d entries", entries)
	}
}

func TestUserHandlerChannelProfile(t *testing.T) {
	handler := UserHandler{Users: newUserStore(models.User{ID: bobID, Username: "bob_smith"})}

	rec := serve(handler.ChannelProfile, "/users/{username}", jsonRequest(t, http.MethodGet, "/users/Bob_Smith", nil), aliceID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if body := decodeBody[models.ChannelProfile](t, rec); body.Data.ID != bobID {
		t.Fatalf("unexpected profile %+v", body.Data)
	}

	rec = serve(handler.ChannelProfile, "/users/{username}", jsonRequest(t, http.MethodGet, "/users/ghost", nil), aliceID)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
	if body := decodeBody[any](t, rec); body.Message != "channel does not exist" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestUserHandlerWatchHistoryPaging(t *testing.T) {
	users := newUserStore()
	handler := UserHandler{Users: users}

	rec := serve(handler.WatchHistory, "/watch-history", jsonRequest(t, http.MethodGet, "/watch-history?page=2&limit=5", nil), aliceID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if users.history.Number != 2 || users.history.Size != 5 {
		t.Fatalf("unexpected page %+v", users.history)
	}

	rec = serve(handler.WatchHistory, "/watch-history", jsonRequest(t, http.MethodGet, "/watch-history?page=0", nil), aliceID)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
}

func TestUserHandlerUnavailable(t *testing.T) {
	rec := serve(UserHandler{}.CurrentProfile, "/current-profile", jsonRequest(t, http.MethodGet, "/current-profile", nil), aliceID)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 got %d", rec.Code)
	}
}
