package handlers

import (
	"context"

	"github.com/devmsrajput/yt-backend/internal/logging"
	"github.com/devmsrajput/yt-backend/internal/media"
	"github.com/devmsrajput/yt-backend/internal/metrics"
)

// uploads tracks the media objects published while serving one request so they can be released
// when a later step fails.
type uploads struct {
	host      media.Host
	janitor   MediaReleaser
	metrics   metrics.Recorder
	published []string
}

func (u *uploads) publish(ctx context.Context, prefix string, file media.StagedFile) (string, error) {
	ctx, span := logging.StartSpan(ctx, "media.publish", "field", file.Field, "bytes", file.Size)
	location, err := media.Publish(ctx, u.host, prefix, file)
	span.Annotate("location", location)
	span.End(err)
	if err != nil {
		return "", err
	}
	u.published = append(u.published, location)
	recorderOr(u.metrics).RecordUpload(file.Field, file.Size)
	return location, nil
}

// rollback releases everything published so far.
func (u *uploads) rollback(ctx context.Context, reason string) {
	release(ctx, u.janitor, reason, u.published...)
	u.published = nil
}

// release hands locations to the janitor. The request context may already be done, so the
// janitor gets a detached one.
func release(ctx context.Context, janitor MediaReleaser, reason string, locations ...string) {
	if janitor == nil || len(locations) == 0 {
		return
	}
	if err := janitor.Release(context.WithoutCancel(ctx), reason, locations...); err != nil {
		logging.FromContext(ctx).Warn("media release not scheduled", "reason", reason, "locations", locations, "error", err)
	}
}
