package handlers

import (
	"net/http"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/repositories"
)

// DashboardHandler serves the creator dashboard of the caller's channel.
type DashboardHandler struct {
	Stats  DashboardStore
	Videos VideoStore
}

// ChannelStats handles GET /dashboard/stats.
func (h DashboardHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Stats == nil {
		unavailable(ctx, w, "dashboard")
		return
	}

	stats, err := h.Stats.Stats(ctx, callerID(r))
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, stats, "Channel stats fetched successfully")
}

// ChannelVideos handles GET /dashboard/videos: every video of the caller, drafts included.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		unavailable(ctx, w, "videos")
		return
	}

	list, err := query.ParseList(r.URL.Query(), videoListOptions)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	videos, err := h.Videos.List(ctx, repositories.VideoFilter{OwnerID: callerID(r)}, list)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}
	envelope.Write(ctx, w, http.StatusOK, videos, "Channel videos fetched successfully")
}
