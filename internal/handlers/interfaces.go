package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/ownership"
	"github.com/devmsrajput/yt-backend/internal/query"
	"github.com/devmsrajput/yt-backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, login string) (models.User, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	UpdateProfile(ctx context.Context, id, fullName, email string, at time.Time) (models.User, error)
	ReplaceAvatar(ctx context.Context, id, location string, at time.Time) (string, error)
	ReplaceCover(ctx context.Context, id, location string, at time.Time) (string, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string, page query.Page) (models.Page[models.HistoryEntry], error)
}

// SessionManager issues, rotates and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	RevokeAll(ctx context.Context, userID string) error
}

// AccountCache forgets cached account lookups when a user signs out.
type AccountCache interface {
	Forget(userID string)
}

// VideoStore captures persistence for videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	Card(ctx context.Context, id, viewerID string) (models.VideoCard, error)
	List(ctx context.Context, filter repositories.VideoFilter, list query.List) (models.Page[models.VideoCard], error)
	Update(ctx context.Context, id, ownerID string, update repositories.VideoUpdate) (models.Video, string, error)
	TogglePublish(ctx context.Context, id, ownerID string, at time.Time) (models.Video, error)
	RecordView(ctx context.Context, id, viewerID string, at time.Time) error
	Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error)
}

// CommentStore captures persistence for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string, page query.Page) (models.Page[models.CommentView], error)
	Update(ctx context.Context, id, ownerID, content string, at time.Time) (models.Comment, error)
	Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error)
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	ListForUser(ctx context.Context, ownerID string, list query.List) (models.Page[models.TweetView], error)
	Update(ctx context.Context, id, ownerID, content string, at time.Time) (models.Tweet, error)
	Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error)
}

// LikeStore toggles likes and lists liked videos.
type LikeStore interface {
	Toggle(ctx context.Context, target models.LikeTarget, targetID, userID string, at time.Time) (bool, error)
	LikedVideos(ctx context.Context, userID string, page query.Page) (models.Page[models.LikedVideo], error)
}

// SubscriptionStore toggles and lists channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string, at time.Time) (bool, error)
	Subscribers(ctx context.Context, channelID string, page query.Page) (models.Page[models.SubscriptionEntry], error)
	Subscribed(ctx context.Context, subscriberID string, page query.Page) (models.Page[models.SubscriptionEntry], error)
}

// PlaylistStore captures persistence for playlists and their entries.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	ListForUser(ctx context.Context, ownerID string, page query.Page) (models.Page[models.PlaylistSummary], error)
	Detail(ctx context.Context, id, viewerID string) (models.PlaylistDetail, error)
	AddVideo(ctx context.Context, playlistID, ownerID, videoID string, at time.Time) error
	RemoveVideo(ctx context.Context, playlistID, ownerID, videoID string, at time.Time) error
	Update(ctx context.Context, id, ownerID, name, description string, at time.Time) (models.Playlist, error)
	Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error)
}

// DashboardStore computes channel statistics.
type DashboardStore interface {
	Stats(ctx context.Context, channelID string) (models.ChannelStats, error)
}

// OwnershipChecker decides whether the caller may mutate an entity.
type OwnershipChecker interface {
	Check(ctx context.Context, actorID string, kind ownership.Kind, entityID string) (ownership.Decision, error)
}

// UploadStager streams multipart uploads into temporary files.
type UploadStager interface {
	Stage(w http.ResponseWriter, r *http.Request, fields ...string) (*media.Staged, error)
}

// MediaReleaser deletes media objects in the background.
type MediaReleaser interface {
	Release(ctx context.Context, reason string, locations ...string) error
}

// Pinger reports whether the data store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
