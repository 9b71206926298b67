package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/ownership"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/repositories"
	"github.com/devmsrajput/yt-backend/internal/security"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

// PlaylistHandler manages user playlists and their entries.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Guard     OwnershipChecker
	Sanitizer security.Sanitizer
	Validator *validation.Validator
	Metrics   metrics.Recorder
	BodyLimit int64
	NowFunc   func() time.Time
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"required,max=2000"`
}

func (h PlaylistHandler) readPlaylist(w http.ResponseWriter, r *http.Request) (playlistRequest, error) {
	var req playlistRequest
	if err := decodeJSON(w, r, h.BodyLimit, &req); err != nil {
		return playlistRequest{}, err
	}
	clean := sanitizerOr(h.Sanitizer)
	req.Name = clean.Sanitize(req.Name)
	req.Description = clean.Sanitize(req.Description)
	if err := validatorOr(h.Validator).Struct(req); err != nil {
		return playlistRequest{}, err
	}
	return req, nil
}

// Create handles POST /playlist/create-playlist.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	req, err := h.readPlaylist(w, r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	now := nowUTC(h.NowFunc)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     callerID(r),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusCreated, playlist, "Playlist created successfully")
}

// ListForUser handles GET /playlist/get-playlists/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	userID, err := pathID(r, "userId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	playlists, err := h.Playlists.ListForUser(ctx, userID, page)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, playlists, "Playlists fetched successfully")
}

// Get handles GET /playlist/get-playlist/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	id, err := pathID(r, "playlistId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	detail, err := h.Playlists.Detail(ctx, id, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "playlist not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, detail, "Playlist fetched successfully")
}

// AddVideo handles POST /playlist/add-video-playlist/{playlistId}/{videoId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	playlistID, videoID, ok := h.entry(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlistID, callerID(r), videoID, nowUTC(h.NowFunc)); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			envelope.Error(ctx, w, http.StatusConflict, "video is already in the playlist")
			return
		}
		respondError(ctx, w, err, "video not found")
		return
	}
	h.respondDetail(w, r, playlistID, "Video added to playlist successfully")
}

// RemoveVideo handles DELETE /playlist/remove-video-playlist/{playlistId}/{videoId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	playlistID, videoID, ok := h.entry(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlistID, callerID(r), videoID, nowUTC(h.NowFunc)); err != nil {
		respondError(ctx, w, err, "video is not in the playlist")
		return
	}
	h.respondDetail(w, r, playlistID, "Video removed from playlist successfully")
}

// entry parses both path ids and checks the caller owns the playlist.
func (h PlaylistHandler) entry(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	ctx := r.Context()

	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		respondError(ctx, w, err, "")
		return "", "", false
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return "", "", false
	}
	if !authorize(ctx, w, h.Guard, callerID(r), ownership.Playlist, playlistID) {
		return "", "", false
	}
	return playlistID, videoID, true
}

func (h PlaylistHandler) respondDetail(w http.ResponseWriter, r *http.Request, playlistID, message string) {
	ctx := r.Context()
	detail, err := h.Playlists.Detail(ctx, playlistID, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "playlist not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, detail, message)
}

// Update handles PATCH /playlist/update-playlist/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	id, err := pathID(r, "playlistId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	req, err := h.readPlaylist(w, r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Playlist, id) {
		return
	}

	playlist, err := h.Playlists.Update(ctx, id, ownerID, req.Name, req.Description, nowUTC(h.NowFunc))
	if err != nil {
		respondError(ctx, w, err, "playlist not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, playlist, "Playlist updated successfully")
}

// Delete handles DELETE /playlist/remove-playlist/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Playlists == nil {
		unavailable(ctx, w, "playlists")
		return
	}

	id, err := pathID(r, "playlistId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Playlist, id) {
		return
	}

	result, err := h.Playlists.Delete(ctx, id, ownerID)
	if err != nil {
		respondError(ctx, w, err, "playlist not found")
		return
	}
	recorderOr(h.Metrics).RecordCascade(result.Entity, affected(result))
	envelope.Write(ctx, w, http.StatusOK, result, "Playlist deleted successfully")
}
