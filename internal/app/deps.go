package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/devmsrajput/yt-backend/internal/auth"
	"github.com/devmsrajput/yt-backend/internal/config"
	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/handlers"
	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/metrics"
	"github.com/devmsrajput/yt-backend/internal/middleware"
	"github.com/devmsrajput/yt-backend/internal/ownership"
	"github.com/devmsrajput/yt-backend/internal/repositories"
	"github.com/devmsrajput/yt-backend/internal/security"
	"github.com/devmsrajput/yt-backend/internal/storage"
	"github.com/devmsrajput/yt-backend/internal/validation"
)

// poolPinger adapts the pool to the health handler.
type poolPinger struct{ pool db.Pool }

func (p poolPinger) Ping(ctx context.Context) error { return db.Ping(ctx, p.pool) }

// buildDependencies wires together concrete implementations used by the HTTP handlers. The returned
// cleanup stops background workers and waits for queued media deletions.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		recorder       metrics.Recorder = metrics.Nop{}
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewCollector(reg)
		metricsHandler = metrics.Handler(reg)
	}

	host, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media host: %w", err)
	}

	users := repositories.NewPostgresUserRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)
	sessions := auth.NewManager(cfg.Auth.AccessTokenSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, sessionStore)
	gate := auth.NewGate(sessions, users, cfg.Auth.UserCacheTTL)

	stager := media.NewStager(cfg.Uploads.TempDir, cfg.Uploads.MaxBytes)
	stager.OnStaged = func(f media.StagedFile) {
		logger.Debug("upload staged", "field", f.Field, "bytes", f.Size)
	}

	janitor := media.NewJanitor(host, media.JanitorConfig{
		Workers:    cfg.Janitor.Workers,
		QueueSize:  cfg.Janitor.QueueSize,
		MaxRetries: cfg.Janitor.MaxRetries,
	}, recorder, logger.With("component", "media_janitor"))

	limiter := middleware.NewKeyedLimiter(middleware.LimiterConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Burst:    cfg.RateLimit.Burst,
	})

	deps := handlers.Dependencies{
		Users:          users,
		Sessions:       sessions,
		Accounts:       gate,
		Gate:           gate,
		Videos:         repositories.NewPostgresVideoRepository(pool),
		Comments:       repositories.NewPostgresCommentRepository(pool),
		Tweets:         repositories.NewPostgresTweetRepository(pool),
		Likes:          repositories.NewPostgresLikeRepository(pool),
		Subscriptions:  repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:      repositories.NewPostgresPlaylistRepository(pool),
		Dashboard:      repositories.NewPostgresDashboardRepository(pool),
		Guard:          ownership.Guard{Lookup: repositories.NewPostgresOwnerLookup(pool)},
		Stager:         stager,
		Media:          host,
		Janitor:        janitor,
		Prober:         media.NewFFProbe(cfg.Uploads.FFProbePath, cfg.Uploads.FFProbeTimeout),
		Sanitizer:      security.NewTextSanitizer(),
		Validator:      validation.New(),
		Limiter:        limiter,
		TrustProxy:     cfg.RateLimit.TrustProxy,
		Metrics:        recorder,
		MetricsHandler: metricsHandler,
		DB:             poolPinger{pool: pool},
		ObjectStore:    host,
		Logger:         logger,
		BodyLimit:      cfg.BodyLimit,
		SecureCookies:  cfg.Auth.SecureCookies,
	}

	sweepCtx, stopSweep := context.WithCancel(context.WithoutCancel(ctx))
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweepSessions(sweepCtx, sessionStore, cfg.Auth.SessionSweep, logger)
	}()

	cleanup := func(ctx context.Context) error {
		stopSweep()
		<-sweepDone
		if err := janitor.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("drain media janitor: %w", err)
		}
		return nil
	}

	return deps, cleanup, nil
}

// sessionSweeper purges refresh sessions past their expiry.
type sessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sweepSessions runs until ctx is done.
func sweepSessions(ctx context.Context, store sessionSweeper, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("session sweep failed", "error", err)
				}
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
		}
	}
}
