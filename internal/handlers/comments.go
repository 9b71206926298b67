package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/ownership"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/security"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

// CommentHandler provides endpoints for commenting on videos.
type CommentHandler struct {
	Comments  CommentStore
	Guard     OwnershipChecker
	Sanitizer security.Sanitizer
	Validator *validation.Validator
	Metrics   metrics.Recorder
	BodyLimit int64
	NowFunc   func() time.Time
}

type contentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// readContent decodes, sanitises and validates a {content} body.
func readContent(w http.ResponseWriter, r *http.Request, limit int64, s security.Sanitizer, v *validation.Validator) (string, error) {
	var req contentRequest
	if err := decodeJSON(w, r, limit, &req); err != nil {
		return "", err
	}
	req.Content = sanitizerOr(s).Sanitize(req.Content)
	if err := validatorOr(v).Struct(req); err != nil {
		return "", err
	}
	return req.Content, nil
}

// Create handles POST /comment/add-comment/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Comments == nil {
		unavailable(ctx, w, "comments")
		return
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	content, err := readContent(w, r, h.BodyLimit, h.Sanitizer, h.Validator)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	now := nowUTC(h.NowFunc)
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   callerID(r),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	envelope.Write(ctx, w, http.StatusCreated, comment, "Comment added successfully")
}

// List handles GET /comment/video-comment/{videoId}, newest first.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Comments == nil {
		unavailable(ctx, w, "comments")
		return
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, videoID, page)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, comments, "Comments fetched successfully")
}

// Update handles PATCH /comment/update-comment/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Comments == nil {
		unavailable(ctx, w, "comments")
		return
	}

	id, err := pathID(r, "commentId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	content, err := readContent(w, r, h.BodyLimit, h.Sanitizer, h.Validator)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Comment, id) {
		return
	}

	comment, err := h.Comments.Update(ctx, id, ownerID, content, nowUTC(h.NowFunc))
	if err != nil {
		respondError(ctx, w, err, "comment not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, comment, "Comment updated successfully")
}

// Delete handles DELETE /comment/delete-comment/{commentId}. Likes on the comment go with it.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Comments == nil {
		unavailable(ctx, w, "comments")
		return
	}

	id, err := pathID(r, "commentId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Comment, id) {
		return
	}

	result, err := h.Comments.Delete(ctx, id, ownerID)
	if err != nil {
		respondError(ctx, w, err, "comment not found")
		return
	}
	recorderOr(h.Metrics).RecordCascade(result.Entity, affected(result))
	envelope.Write(ctx, w, http.StatusOK, result, "Comment deleted successfully")
}
