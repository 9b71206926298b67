package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/logging"
	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/repositories"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

const (
	avatarField = "avatarImage"
	coverField  = "coverImage"
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users         UserStore
	Sessions      SessionManager
	Accounts      AccountCache
	Stager        UploadStager
	Media         media.Host
	Janitor       MediaReleaser
	Validator     *validation.Validator
	Metrics       metrics.Recorder
	SecureCookies bool
	BodyLimit     int64
	NowFunc       func() time.Time
}

type signUpRequest struct {
	Username string `json:"username" validate:"required,username"`
	FullName string `json:"fullName" validate:"required,fullname"`
	Email    string `json:"email" validate:"required,mailbox"`
	Password string `json:"password" validate:"required,password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"omitempty,fullname"`
	Email    string `json:"email" validate:"omitempty,mailbox"`
}

type sessionResponse struct {
	User models.User `json:"user"`
	models.SessionTokens
}

// SignUp handles POST /users/signup. The body is multipart with the account fields, a required
// avatarImage and an optional coverImage.
func (h UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Stager == nil {
		unavailable(ctx, w, "signup")
		return
	}

	staged, err := h.Stager.Stage(w, r, avatarField, coverField)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer staged.Cleanup()

	req := signUpRequest{
		Username: strings.ToLower(strings.TrimSpace(staged.Values.Get("username"))),
		FullName: strings.TrimSpace(staged.Values.Get("fullName")),
		Email:    strings.ToLower(strings.TrimSpace(staged.Values.Get("email"))),
		Password: staged.Values.Get("password"),
	}
	if err := validatorOr(h.Validator).Struct(req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	avatar, ok := staged.File(avatarField)
	if !ok {
		envelope.Error(ctx, w, http.StatusBadRequest, "avatarImage is required")
		return
	}

	for _, login := range []string{req.Username, req.Email} {
		if _, err := h.Users.FindByLogin(ctx, login); err == nil {
			logger.Warn("signup existing account", "username", req.Username, "email", req.Email)
			envelope.Error(ctx, w, http.StatusConflict, "user with this username or email already exists")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, err, "")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("signup failed to hash password", "error", err)
		envelope.Error(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := nowUTC(h.NowFunc)
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	up := &uploads{host: h.Media, janitor: h.Janitor, metrics: h.Metrics}
	if user.AvatarURL, err = up.publish(ctx, "avatars/"+user.ID, avatar); err != nil {
		respondError(ctx, w, err, "")
		return
	}
	if cover, ok := staged.File(coverField); ok {
		if user.CoverURL, err = up.publish(ctx, "covers/"+user.ID, cover); err != nil {
			up.rollback(ctx, "signup failed")
			respondError(ctx, w, err, "")
			return
		}
	}

	if err := h.Users.Create(ctx, user); err != nil {
		up.rollback(ctx, "signup failed")
		if errors.Is(err, repositories.ErrConflict) {
			envelope.Error(ctx, w, http.StatusConflict, "user with this username or email already exists")
			return
		}
		respondError(ctx, w, err, "")
		return
	}

	logger.Info("user registered", "user_id", user.ID)
	envelope.Write(ctx, w, http.StatusCreated, user, "User registered successfully")
}

// Login handles POST /users/login with a username or email and a password.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		unavailable(ctx, w, "login")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.BodyLimit, &req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	login := strings.ToLower(strings.TrimSpace(req.Username))
	if login == "" {
		login = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if login == "" || req.Password == "" {
		envelope.Error(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("login unknown account", "login", login)
			envelope.Error(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(ctx, w, err, "")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "user_id", user.ID)
		envelope.Error(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		envelope.Error(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	auth.SetSessionCookies(w, tokens, h.SecureCookies)
	envelope.Write(ctx, w, http.StatusOK, sessionResponse{User: user, SessionTokens: tokens}, "User logged in successfully")
}

// Refresh handles POST /users/refresh-token. The refresh token comes from the cookie or the body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Sessions == nil {
		unavailable(ctx, w, "sessions")
		return
	}

	token := auth.RefreshToken(r)
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, h.BodyLimit, &req); err != nil && !errors.Is(err, errEmptyBody) {
			respondError(ctx, w, err, "")
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		envelope.Error(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenExpired) || errors.Is(err, auth.ErrSessionNotFound) {
			auth.ClearSessionCookies(w, h.SecureCookies)
			envelope.Error(ctx, w, http.StatusUnauthorized, "refresh token is invalid or expired")
			return
		}
		respondError(ctx, w, err, "")
		return
	}

	auth.SetSessionCookies(w, tokens, h.SecureCookies)
	envelope.Write(ctx, w, http.StatusOK, tokens, "Access token refreshed")
}

// Logout handles POST /users/logout by ending every session of the caller.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Sessions == nil {
		unavailable(ctx, w, "sessions")
		return
	}

	userID := callerID(r)
	if err := h.Sessions.RevokeAll(ctx, userID); err != nil {
		respondError(ctx, w, err, "")
		return
	}
	if h.Accounts != nil {
		h.Accounts.Forget(userID)
	}

	auth.ClearSessionCookies(w, h.SecureCookies)
	envelope.Write(ctx, w, http.StatusOK, struct{}{}, "User logged out")
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		unavailable(ctx, w, "users")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.BodyLimit, &req); err != nil {
		respondError(ctx, w, err, "")
		return
	}
	if err := validatorOr(h.Validator).Struct(req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	user, err := h.Users.FindByID(ctx, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		envelope.Error(ctx, w, http.StatusBadRequest, "old password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logging.FromContext(ctx).Error("failed to hash password", "error", err)
		envelope.Error(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed), nowUTC(h.NowFunc)); err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}

	envelope.Write(ctx, w, http.StatusOK, struct{}{}, "Password changed successfully")
}

// UpdateProfile handles PATCH /users/update-profile for fullName and email.
func (h UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		unavailable(ctx, w, "users")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, h.BodyLimit, &req); err != nil {
		respondError(ctx, w, err, "")
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" && req.Email == "" {
		envelope.Error(ctx, w, http.StatusBadRequest, "fullName or email is required")
		return
	}
	if err := validatorOr(h.Validator).Struct(req); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	current, err := h.Users.FindByID(ctx, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	if req.FullName == "" {
		req.FullName = current.FullName
	}
	if req.Email == "" {
		req.Email = current.Email
	}

	user, err := h.Users.UpdateProfile(ctx, current.ID, req.FullName, req.Email, nowUTC(h.NowFunc))
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			envelope.Error(ctx, w, http.StatusConflict, "email is already in use")
			return
		}
		respondError(ctx, w, err, "user not found")
		return
	}

	envelope.Write(ctx, w, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /users/upload-avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		unavailable(r.Context(), w, "users")
		return
	}
	h.replaceImage(w, r, avatarField, "avatars", h.Users.ReplaceAvatar, "Avatar updated successfully")
}

// UpdateCover handles PATCH /users/upload-cover.
func (h UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	if h.Users == nil {
		unavailable(r.Context(), w, "users")
		return
	}
	h.replaceImage(w, r, coverField, "covers", h.Users.ReplaceCover, "Cover image updated successfully")
}

type replaceFunc func(ctx context.Context, id, location string, at time.Time) (string, error)

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field, prefix string, replace replaceFunc, message string) {
	ctx := r.Context()

	if h.Stager == nil {
		unavailable(ctx, w, "image upload")
		return
	}

	staged, err := h.Stager.Stage(w, r, field)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer staged.Cleanup()

	file, ok := staged.File(field)
	if !ok {
		envelope.Error(ctx, w, http.StatusBadRequest, field+" is required")
		return
	}

	userID := callerID(r)
	up := &uploads{host: h.Media, janitor: h.Janitor, metrics: h.Metrics}
	location, err := up.publish(ctx, prefix+"/"+userID, file)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	previous, err := replace(ctx, userID, location, nowUTC(h.NowFunc))
	if err != nil {
		up.rollback(ctx, field+" update failed")
		respondError(ctx, w, err, "user not found")
		return
	}
	release(ctx, h.Janitor, field+" replaced", previous)

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, user, message)
}

// CurrentProfile handles GET /users/current-profile.
func (h UserHandler) CurrentProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		unavailable(ctx, w, "users")
		return
	}

	user, err := h.Users.FindByID(ctx, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, user, "Current user fetched successfully")
}

// ChannelProfile handles GET /users/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		unavailable(ctx, w, "users")
		return
	}

	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		envelope.Error(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "channel does not exist")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory handles GET /users/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Users == nil {
		unavailable(ctx, w, "users")
		return
	}

	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	history, err := h.Users.WatchHistory(ctx, callerID(r), page)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, history, "Watch history fetched successfully")
}
