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
	"github.com/devmsrajput/yt-backend/internal/repositories"
	"github.com/devmsrajput/yt-backend/internal/security"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

var tweetListOptions = query.ListOptions{
	Sortable:    repositories.TweetSortable,
	DefaultSort: "createdAt",
	DefaultDesc: true,
}

// TweetHandler provides endpoints for short text posts.
type TweetHandler struct {
	Tweets    TweetStore
	Guard     OwnershipChecker
	Sanitizer security.Sanitizer
	Validator *validation.Validator
	Metrics   metrics.Recorder
	BodyLimit int64
	NowFunc   func() time.Time
}

// Create handles POST /tweet/create-tweet.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tweets == nil {
		unavailable(ctx, w, "tweets")
		return
	}

	content, err := readContent(w, r, h.BodyLimit, h.Sanitizer, h.Validator)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	now := nowUTC(h.NowFunc)
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   callerID(r),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusCreated, tweet, "Tweet created successfully")
}

// List handles GET /tweet. userId defaults to the caller.
func (h TweetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tweets == nil {
		unavailable(ctx, w, "tweets")
		return
	}

	values := r.URL.Query()
	list, err := query.ParseList(values, tweetListOptions)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID, err := optionalID(values, "userId", callerID(r))
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	tweets, err := h.Tweets.ListForUser(ctx, ownerID, list)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, tweets, "Tweets fetched successfully")
}

// Update handles PATCH /tweet/update-tweet/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tweets == nil {
		unavailable(ctx, w, "tweets")
		return
	}

	id, err := pathID(r, "tweetId")
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
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Tweet, id) {
		return
	}

	tweet, err := h.Tweets.Update(ctx, id, ownerID, content, nowUTC(h.NowFunc))
	if err != nil {
		respondError(ctx, w, err, "tweet not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, tweet, "Tweet updated successfully")
}

// Delete handles DELETE /tweet/delete-tweet/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Tweets == nil {
		unavailable(ctx, w, "tweets")
		return
	}

	id, err := pathID(r, "tweetId")
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	ownerID := callerID(r)
	if !authorize(ctx, w, h.Guard, ownerID, ownership.Tweet, id) {
		return
	}

	result, err := h.Tweets.Delete(ctx, id, ownerID)
	if err != nil {
		respondError(ctx, w, err, "tweet not found")
		return
	}
	recorderOr(h.Metrics).RecordCascade(result.Entity, affected(result))
	envelope.Write(ctx, w, http.StatusOK, result, "Tweet deleted successfully")
}
