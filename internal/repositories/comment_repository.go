package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/devmsrajput/yt-backend/internal/db"
	"github.com/devmsrajput/yt-backend/internal/models"
	"github.com/devmsrajput/yt-backend/internal/query"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for video comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

const commentColumns = `id, video_id, owner_id, content, created_at, updated_at`

func scanComment(row pgx.Row) (models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return models.Comment{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// Create stores a comment. A missing video yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	return translate(err, "insert comment")
}

// ListForVideo pages through the comments of a video, newest first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string, page query.Page) (models.Page[models.CommentView], error) {
	plan, err := query.From("comments", "c").
		Select(qualify("c", []string{"id", "video_id", "owner_id", "content", "created_at", "updated_at"})...).
		JoinOne(query.Owner("o", "c.owner_id")).
		JoinCount(likesOf("comment_id", "c.id")).
		Match("c.video_id", videoID).
		Sort(query.Sort{Column: "c.created_at", Desc: true}).
		Paginate(page).
		Build()
	if err != nil {
		return models.Page[models.CommentView]{}, err
	}

	return query.Paginate(ctx, r.pool, plan, func(row pgx.CollectableRow) (models.CommentView, error) {
		var (
			view  models.CommentView
			owner query.NullOwner
		)
		targets := append([]any{&view.ID, &view.VideoID, &view.OwnerID, &view.Content, &view.CreatedAt, &view.UpdatedAt}, owner.Targets()...)
		targets = append(targets, &view.Likes)
		if err := row.Scan(targets...); err != nil {
			return models.CommentView{}, err
		}
		view.CreatedAt = view.CreatedAt.UTC()
		view.UpdatedAt = view.UpdatedAt.UTC()
		view.Owner = owner.Summary()
		return view, nil
	})
}

// Update replaces the content of a comment owned by ownerID.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, ownerID, content string, at time.Time) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	comment, err := scanComment(conn.QueryRow(ctx, `
        UPDATE comments SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
        RETURNING `+commentColumns, id, ownerID, content, at))
	if err != nil {
		return models.Comment{}, translate(err, "update comment")
	}
	return comment, nil
}

var commentCascade = []cascadeStep{
	{name: "likes", sql: `DELETE FROM likes WHERE comment_id = $1`},
	{name: "comment", sql: `DELETE FROM comments WHERE id = $1`},
}

// Delete removes a comment owned by ownerID and its likes.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id, ownerID string) (models.CascadeResult, error) {
	result := models.CascadeResult{Entity: "comment", ID: id}
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var found string
		if err := tx.QueryRow(ctx, `SELECT id FROM comments WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID).Scan(&found); err != nil {
			return err
		}
		return runCascade(ctx, tx, &result, commentCascade, id)
	})
	if err != nil {
		return models.CascadeResult{}, translate(err, "delete comment")
	}
	return result, nil
}
