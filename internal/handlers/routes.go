package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/middleware"
	"github.com/devmsrajput/yt-backend/internal/security"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Accounts      AccountCache
	Gate          middleware.Authenticator
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Dashboard     DashboardStore
	Guard         OwnershipChecker

	Stager  UploadStager
	Media   media.Host
	Janitor MediaReleaser
	Prober  media.Prober

	Sanitizer  security.Sanitizer
	Validator  *validation.Validator
	Limiter    middleware.RateLimiter
	TrustProxy bool

	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	DB             Pinger
	ObjectStore    Pinger
	Logger         *slog.Logger

	BodyLimit     int64
	SecureCookies bool
	NowFunc       func() time.Time
}

// NewRouter wires every route under /api/v1 plus the operational endpoints.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := HealthHandler{}
	if deps.DB != nil {
		health.Checks = append(health.Checks, HealthCheck{Name: "database", Probe: deps.DB})
	}
	if deps.ObjectStore != nil {
		health.Checks = append(health.Checks, HealthCheck{Name: "object_store", Probe: deps.ObjectStore})
	}
	users := UserHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Accounts:      deps.Accounts,
		Stager:        deps.Stager,
		Media:         deps.Media,
		Janitor:       deps.Janitor,
		Validator:     deps.Validator,
		Metrics:       deps.Metrics,
		SecureCookies: deps.SecureCookies,
		BodyLimit:     deps.BodyLimit,
		NowFunc:       deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:    deps.Videos,
		Guard:     deps.Guard,
		Stager:    deps.Stager,
		Media:     deps.Media,
		Janitor:   deps.Janitor,
		Prober:    deps.Prober,
		Sanitizer: deps.Sanitizer,
		Validator: deps.Validator,
		Metrics:   deps.Metrics,
		NowFunc:   deps.NowFunc,
	}
	comments := CommentHandler{Comments: deps.Comments, Guard: deps.Guard, Sanitizer: deps.Sanitizer, Validator: deps.Validator, Metrics: deps.Metrics, BodyLimit: deps.BodyLimit, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, Guard: deps.Guard, Sanitizer: deps.Sanitizer, Validator: deps.Validator, Metrics: deps.Metrics, BodyLimit: deps.BodyLimit, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Metrics: deps.Metrics, NowFunc: deps.NowFunc}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Metrics: deps.Metrics, NowFunc: deps.NowFunc}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Guard: deps.Guard, Sanitizer: deps.Sanitizer, Validator: deps.Validator, Metrics: deps.Metrics, BodyLimit: deps.BodyLimit, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Stats: deps.Dashboard, Videos: deps.Videos}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Instrument(deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		envelope.Error(r.Context(), w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		envelope.Error(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", health.Handle)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/users", func(u chi.Router) {
			u.With(middleware.Throttle(deps.Limiter, "signup")).Post("/signup", users.SignUp)
			u.With(middleware.Throttle(deps.Limiter, "login")).Post("/login", users.Login)
			u.With(middleware.Throttle(deps.Limiter, "refresh")).Post("/refresh-token", users.Refresh)

			u.Group(func(p chi.Router) {
				p.Use(middleware.RequireAuth(deps.Gate))
				p.Post("/logout", users.Logout)
				p.Post("/change-password", users.ChangePassword)
				p.Patch("/update-profile", users.UpdateProfile)
				p.Patch("/upload-avatar", users.UpdateAvatar)
				p.Patch("/upload-cover", users.UpdateCover)
				p.Get("/current-profile", users.CurrentProfile)
				p.Get("/watch-history", users.WatchHistory)
				p.Get("/{username}", users.ChannelProfile)
			})
		})

		api.Group(func(p chi.Router) {
			p.Use(middleware.RequireAuth(deps.Gate))

			p.Route("/video", func(v chi.Router) {
				v.Get("/", videos.List)
				v.Post("/upload-video", videos.Upload)
				v.Get("/{videoId}", videos.Get)
				v.Patch("/update-video/{videoId}", videos.Update)
				v.Delete("/delete-video/{videoId}", videos.Delete)
				v.Patch("/publish/{videoId}", videos.TogglePublish)
			})

			p.Route("/tweet", func(t chi.Router) {
				t.Post("/create-tweet", tweets.Create)
				t.Get("/", tweets.List)
				t.Patch("/update-tweet/{tweetId}", tweets.Update)
				t.Delete("/delete-tweet/{tweetId}", tweets.Delete)
			})

			p.Route("/subscription", func(s chi.Router) {
				s.Post("/subscribe/{channelId}", subscriptions.Toggle)
				s.Get("/subscribers/{channelId}", subscriptions.Subscribers)
				s.Get("/subscribed/{subscriberId}", subscriptions.Subscribed)
			})

			p.Route("/comment", func(c chi.Router) {
				c.Post("/add-comment/{videoId}", comments.Create)
				c.Get("/video-comment/{videoId}", comments.List)
				c.Patch("/update-comment/{commentId}", comments.Update)
				c.Delete("/delete-comment/{commentId}", comments.Delete)
			})

			p.Route("/like", func(l chi.Router) {
				l.Post("/like-video/{videoId}", likes.ToggleVideo)
				l.Post("/like-comment/{commentId}", likes.ToggleComment)
				l.Post("/like-tweet/{tweetId}", likes.ToggleTweet)
				l.Get("/liked-video", likes.LikedVideos)
			})

			p.Route("/playlist", func(pl chi.Router) {
				pl.Post("/create-playlist", playlists.Create)
				pl.Get("/get-playlists/{userId}", playlists.ListForUser)
				pl.Get("/get-playlist/{playlistId}", playlists.Get)
				pl.Post("/add-video-playlist/{playlistId}/{videoId}", playlists.AddVideo)
				pl.Delete("/remove-video-playlist/{playlistId}/{videoId}", playlists.RemoveVideo)
				pl.Delete("/remove-playlist/{playlistId}", playlists.Delete)
				pl.Patch("/update-playlist/{playlistId}", playlists.Update)
			})

			p.Route("/dashboard", func(d chi.Router) {
				d.Get("/stats", dashboard.ChannelStats)
				d.Get("/videos", dashboard.ChannelVideos)
			})
		})
	})

	return r
}
