package models

import "time"

// User represents an account on the platform. Password holds the bcrypt hash and is never serialised.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Password  string    `json:"-"`
	AvatarURL string    `json:"avatarUrl"`
	CoverURL  string    `json:"coverUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerSummary is the narrow projection of a user embedded into other resources.
type OwnerSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

// ChannelProfile is a user as seen from another user's point of view.
type ChannelProfile struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	FullName          string    `json:"fullName"`
	Email             string    `json:"email"`
	AvatarURL         string    `json:"avatarUrl"`
	CoverURL          string    `json:"coverUrl"`
	SubscribersCount  int64     `json:"subscribersCount"`
	SubscribedToCount int64     `json:"subscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Video stores the media references and counters for an uploaded video.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Duration     int64     `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VideoCard is a video enriched with its owner and like count for listings.
type VideoCard struct {
	Video
	Owner   *OwnerSummary `json:"owner"`
	Likes   int64         `json:"likes"`
	IsLiked bool          `json:"isLiked,omitempty"`
}

// Comment is a remark left on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentView is a comment with its author and like count.
type CommentView struct {
	Comment
	Owner *OwnerSummary `json:"owner"`
	Likes int64         `json:"likes"`
}

// Tweet is a short text post owned by a user.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TweetView is a tweet with its author and like count.
type TweetView struct {
	Tweet
	Owner *OwnerSummary `json:"owner"`
	Likes int64         `json:"likes"`
}

// LikeTarget identifies the kind of resource a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// LikedVideo is an entry of a user's liked videos. Video is nil when the video no longer exists.
type LikedVideo struct {
	LikeID  string     `json:"likeId"`
	LikedAt time.Time  `json:"likedAt"`
	Video   *VideoCard `json:"video"`
}

// HistoryEntry is a video in a user's watch history.
type HistoryEntry struct {
	WatchedAt time.Time  `json:"watchedAt"`
	Video     *VideoCard `json:"video"`
}

// Subscription links a subscriber to a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SubscriptionEntry is one side of a subscription listing.
type SubscriptionEntry struct {
	User         *OwnerSummary `json:"user"`
	SubscribedAt time.Time     `json:"subscribedAt"`
}

// Playlist is an ordered, user-curated list of videos.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistSummary is a playlist with the number of videos it holds.
type PlaylistSummary struct {
	Playlist
	VideoCount int64 `json:"videoCount"`
}

// PlaylistDetail is a playlist with its owner and videos in playlist order.
type PlaylistDetail struct {
	Playlist
	Owner  *OwnerSummary `json:"owner"`
	Videos []VideoCard   `json:"videos"`
}

// ChannelStats aggregates totals shown on the creator dashboard.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
}

// PageMeta describes the window returned by a paginated read.
type PageMeta struct {
	TotalCount int64 `json:"totalCount"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}

// Page is a window of results together with its metadata.
type Page[T any] struct {
	Metadata PageMeta `json:"metadata"`
	Data     []T      `json:"data"`
}

// CascadeStep records how many rows one step of a cascading delete removed.
type CascadeStep struct {
	Name     string `json:"name"`
	Affected int64  `json:"affected"`
}

// CascadeResult reports every step performed while deleting an entity and its dependents.
type CascadeResult struct {
	Entity string        `json:"entity"`
	ID     string        `json:"id"`
	Steps  []CascadeStep `json:"steps"`
	// Media lists object store locations released by the delete.
	Media []string `json:"-"`
}

// Record appends a step to the result.
func (r *CascadeResult) Record(name string, affected int64) {
	r.Steps = append(r.Steps, CascadeStep{Name: name, Affected: affected})
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
