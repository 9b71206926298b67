package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

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

const (
	videoField     = "videoFile"
	thumbnailField = "thumbnailFile"
)

var videoListOptions = query.ListOptions{
	Sortable:    repositories.VideoSortable,
	DefaultSort: "createdAt",
	DefaultDesc: true,
}

// VideoHandler provides endpoints for uploading, browsing and managing videos.
type VideoHandler struct {
	Videos    VideoStore
	Guard     OwnershipChecker
	Stager    UploadStager
	Media     media.Host
	Janitor   MediaReleaser
	Prober    media.Prober
	Sanitizer security.Sanitizer
	Validator *validation.Validator
	Metrics   metrics.Recorder
	NowFunc   func() time.Time
}

type videoText struct {
	Title       string `json:"title" validate:"required,max=200,title"`
	Description string `json:"description" validate:"required,max=5000,description"`
}

func (h VideoHandler) readText(values map[string][]string) videoText {
	clean := sanitizerOr(h.Sanitizer)
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return clean.Sanitize(v[0])
		}
		return ""
	}
	return videoText{Title: get("title"), Description: get("description")}
}

// Upload handles POST /video/upload-video. The multipart body carries videoFile, thumbnailFile,
// title, description and an optional isPublished flag.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil || h.Stager == nil || h.Prober == nil {
		unavailable(ctx, w, "video upload")
		return
	}

	staged, err := h.Stager.Stage(w, r, videoField, thumbnailField)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer staged.Cleanup()

	text := h.readText(staged.Values)
	if err := validatorOr(h.Validator).Struct(text); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	published := true
	if raw := strings.TrimSpace(staged.Values.Get("isPublished")); raw != "" {
		if published, err = strconv.ParseBool(raw); err != nil {
			respondError(ctx, w, &validation.Error{Field: "isPublished", Tag: "boolean"}, "")
			return
		}
	}

	videoFile, ok := staged.File(videoField)
	if !ok {
		envelope.Error(ctx, w, http.StatusBadRequest, "videoFile is required")
		return
	}
	thumbnail, ok := staged.File(thumbnailField)
	if !ok {
		envelope.Error(ctx, w, http.StatusBadRequest, "thumbnailFile is required")
		return
	}

	duration, err := h.Prober.Duration(ctx, videoFile.Path)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	ownerID := callerID(r)
	now := nowUTC(h.NowFunc)
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       text.Title,
		Description: text.Description,
		Duration:    duration,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	up := &uploads{host: h.Media, janitor: h.Janitor, metrics: h.Metrics}
	if video.VideoURL, err = up.publish(ctx, "videos/"+ownerID, videoFile); err != nil {
		respondError(ctx, w, err, "")
		return
	}
	if video.ThumbnailURL, err = up.publish(ctx, "thumbnails/"+ownerID, thumbnail); err != nil {
		up.rollback(ctx, "video upload failed")
		respondError(ctx, w, err, "")
		return
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		up.rollback(ctx, "video upload failed")
		respondError(ctx, w, err, "owner not found")
		return
	}

	logger.Info("video uploaded", "video_id", video.ID, "duration", duration)
	envelope.Write(ctx, w, http.StatusCreated, video, "Video uploaded successfully")
}

// List handles GET /video: published videos, optionally searched by title and filtered by owner.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		unavailable(ctx, w, "videos")
		return
	}

	values := r.URL.Query()
	list, err := query.ParseList(values, videoListOptions)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID, err := optionalID(values, "userId", "")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	filter := repositories.VideoFilter{
		OwnerID:       ownerID,
		Search:        strings.TrimSpace(values.Get("query")),
		PublishedOnly: true,
	}
	page, err := h.Videos.List(ctx, filter, list)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, page, "Videos fetched successfully")
}

// Get handles GET /video/{videoId}. Viewing counts a view and updates the caller's history.
// Unpublished videos are visible to their owner only.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		unavailable(ctx, w, "videos")
		return
	}

	id, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	viewerID := callerID(r)
	card, err := h.Videos.Card(ctx, id, viewerID)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}
	if !card.IsPublished && card.OwnerID != viewerID {
		envelope.Error(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.Videos.RecordView(ctx, id, viewerID, nowUTC(h.NowFunc)); err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}
	card.Views++

	envelope.Write(ctx, w, http.StatusOK, card, "Video fetched successfully")
}

// Update handles PATCH /video/update-video/{videoId} with title, description and an optional
// replacement thumbnailFile.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil || h.Stager == nil {
		unavailable(ctx, w, "videos")
		return
	}

	id, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Video, id) {
		return
	}

	staged, err := h.Stager.Stage(w, r, thumbnailField)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	defer staged.Cleanup()

	text := h.readText(staged.Values)
	if err := validatorOr(h.Validator).Struct(text); err != nil {
		respondError(ctx, w, err, "")
		return
	}

	update := repositories.VideoUpdate{Title: text.Title, Description: text.Description, UpdatedAt: nowUTC(h.NowFunc)}
	up := &uploads{host: h.Media, janitor: h.Janitor, metrics: h.Metrics}
	if thumbnail, ok := staged.File(thumbnailField); ok {
		if update.ThumbnailURL, err = up.publish(ctx, "thumbnails/"+ownerID, thumbnail); err != nil {
			respondError(ctx, w, err, "")
			return
		}
	}

	video, previous, err := h.Videos.Update(ctx, id, ownerID, update)
	if err != nil {
		up.rollback(ctx, "video update failed")
		respondError(ctx, w, err, "video not found")
		return
	}
	release(ctx, h.Janitor, "thumbnail replaced", previous)

	envelope.Write(ctx, w, http.StatusOK, video, "Video updated successfully")
}

// Delete handles DELETE /video/delete-video/{videoId}. Comments, likes, playlist entries and history
// go with the video; its media is released once the delete commits.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		unavailable(ctx, w, "videos")
		return
	}

	id, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Video, id) {
		return
	}

	ctx, span := logging.StartSpan(ctx, "video.delete", "video_id", id)
	result, err := h.Videos.Delete(ctx, id, ownerID)
	span.Annotate("rows", affected(result), "media", len(result.Media))
	span.End(err)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	recorderOr(h.Metrics).RecordCascade(result.Entity, affected(result))
	release(ctx, h.Janitor, "video deleted", result.Media...)

	envelope.Write(ctx, w, http.StatusOK, result, "Video deleted successfully")
}

// TogglePublish handles PATCH /video/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		unavailable(ctx, w, "videos")
		return
	}

	id, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Video, id) {
		return
	}

	video, err := h.Videos.TogglePublish(ctx, id, ownerID, nowUTC(h.NowFunc))
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	message := "Video unpublished successfully"
	if video.IsPublished {
		message = "Video published successfully"
	}
	envelope.Write(ctx, w, http.StatusOK, video, message)
}
