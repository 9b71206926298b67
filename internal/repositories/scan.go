package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
)

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url,
        duration_seconds, views, is_published, created_at, updated_at`

func videoTargets(v *models.Video) []any {
	return []any{&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL, &v.ThumbnailURL,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt}
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	if err := row.Scan(videoTargets(&v)...); err != nil {
		return models.Video{}, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

// likesOf counts the likes pointing at column of the outer alias.
func likesOf(target, outer string) query.Count {
	return query.Count{Table: "likes", Alias: "lk", Where: "lk." + target + " = " + outer, As: "likes"}
}

// videoCards projects v (a videos row), its owner o and its like count.
func videoCards(p *query.Pipeline) *query.Pipeline {
	return p.Select(qualify("v", query.VideoFields)...).
		JoinOne(query.Owner("o", "v.owner_id")).
		JoinCount(likesOf("video_id", "v.id"))
}

func qualify(alias string, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = alias + "." + f
	}
	return out
}

func scanVideoCard(row pgx.CollectableRow) (models.VideoCard, error) {
	var (
		card  models.VideoCard
		owner query.NullOwner
	)
	targets := append(videoTargets(&card.Video), owner.Targets()...)
	targets = append(targets, &card.Likes)
	if err := row.Scan(targets...); err != nil {
		return models.VideoCard{}, err
	}
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	card.Owner = owner.Summary()
	return card, nil
}

// joinedVideoCard scans a left-joined video with its owner and like count. The card is nil when
// the video row is gone.
func joinedVideoCard(video *query.NullVideo, owner *query.NullOwner, likes int64) *models.VideoCard {
	v := video.Video()
	if v == nil {
		return nil
	}
	return &models.VideoCard{Video: *v, Owner: owner.Summary(), Likes: likes}
}

// cascadeStep is one statement of a cascading delete.
type cascadeStep struct {
	name string
	sql  string
}

// runCascade executes steps in order against tx, recording the rows each one removed. The
// final step deletes the root entity; when it removes nothing the whole delete is reported missing.
func runCascade(ctx context.Context, tx pgx.Tx, result *models.CascadeResult, steps []cascadeStep, args ...any) error {
	result.Steps = result.Steps[:0]
	for i, step := range steps {
		tag, err := tx.Exec(ctx, step.sql, args...)
		if err != nil {
			return fmt.Errorf("cascade %s: %w", step.name, err)
		}
		result.Record(step.name, tag.RowsAffected())
		if i == len(steps)-1 && tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
