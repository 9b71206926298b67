package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
)

// LikeHandler toggles likes on videos, comments and tweets.
type LikeHandler struct {
	Likes   LikeStore
	Metrics metrics.Recorder
	NowFunc func() time.Time
}

type likeState struct {
	Liked bool `json:"liked"`
}

// ToggleVideo handles POST /like/like-video/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId")
}

// ToggleComment handles POST /like/like-comment/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId")
}

// ToggleTweet handles POST /like/like-tweet/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, param string) {
	ctx := r.Context()

	if h.Likes == nil {
		unavailable(ctx, w, "likes")
		return
	}

	id, err := pathID(r, param)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	liked, err := h.Likes.Toggle(ctx, target, id, callerID(r), nowUTC(h.NowFunc))
	if err != nil {
		respondError(ctx, w, err, fmt.Sprintf("%s not found", target))
		return
	}
	recorderOr(h.Metrics).RecordToggle("like_"+string(target), liked)

	message := fmt.Sprintf("Unliked %s successfully.", target)
	if liked {
		message = fmt.Sprintf("Liked %s successfully.", target)
	}
	envelope.Write(ctx, w, http.StatusOK, likeState{Liked: liked}, message)
}

// LikedVideos handles GET /like/liked-video, newest like first.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Likes == nil {
		unavailable(ctx, w, "likes")
		return
	}

	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	videos, err := h.Likes.LikedVideos(ctx, callerID(r), page)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, videos, "Liked videos fetched successfully")
}
