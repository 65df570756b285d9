package post

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/blogapi/pkg/pg"
)

const postsTable = "posts"

var postColumns = []string{
	"id", "title", "content",
	"image_reference", "image_file_name", "image_content_type", "image_file_size",
	"image_alt_text", "owner_id", "created_at", "updated_at",
}

// Querier is the subset of *pgxpool.Pool, *pgx.Conn and pgx.Tx used by PGRepository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepository struct {
	db Querier
	sb sq.StatementBuilderType
}

// NewPGRepository returns a Repository backed by the posts table.
// The schema is created by the embedded migrations (see Migrations).
func NewPGRepository(db Querier) Repository {
	return &pgRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *pgRepository) Create(ctx context.Context, p *Post) error {
	query, args, err := r.sb.Insert(postsTable).
		Columns(
			"title", "content",
			"image_reference", "image_file_name", "image_content_type", "image_file_size",
			"image_alt_text", "owner_id",
		).
		Values(
			p.Title, p.Content,
			p.Image.Reference, p.Image.OriginalFilename, p.Image.ContentType, p.Image.SizeBytes,
			p.ImageAltText, p.OwnerID,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return errors.Join(ErrFailedToCreatePost, err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return errors.Join(ErrFailedToCreatePost, err)
	}
	return nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *pgRepository) GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*Post, error) {
	return r.getOne(ctx, sq.Eq{"id": id, "owner_id": ownerID})
}

func (r *pgRepository) getOne(ctx context.Context, where sq.Eq) (*Post, error) {
	query, args, err := r.sb.Select(postColumns...).From(postsTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPost, err)
	}

	p, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrFailedToLoadPost, err)
	}
	return p, nil
}

func (r *pgRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Post, error) {
	query, args, err := r.sb.Select(postColumns...).
		From(postsTable).
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPost, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPost, err)
	}
	defer rows.Close()

	posts := make([]*Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadPost, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrFailedToLoadPost, err)
	}
	return posts, nil
}

func (r *pgRepository) Update(ctx context.Context, p *Post) error {
	query, args, err := r.sb.Update(postsTable).
		SetMap(map[string]any{
			"title":              p.Title,
			"content":            p.Content,
			"image_reference":    p.Image.Reference,
			"image_file_name":    p.Image.OriginalFilename,
			"image_content_type": p.Image.ContentType,
			"image_file_size":    p.Image.SizeBytes,
			"image_alt_text":     p.ImageAltText,
			"updated_at":         sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": p.ID, "owner_id": p.OwnerID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return errors.Join(ErrFailedToUpdatePost, err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return ErrNotFound
		}
		return errors.Join(ErrFailedToUpdatePost, err)
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	query, args, err := r.sb.Delete(postsTable).Where(sq.Eq{"id": id, "owner_id": ownerID}).ToSql()
	if err != nil {
		return errors.Join(ErrFailedToDeletePost, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Join(ErrFailedToDeletePost, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	if err := row.Scan(
		&p.ID, &p.Title, &p.Content,
		&p.Image.Reference, &p.Image.OriginalFilename, &p.Image.ContentType, &p.Image.SizeBytes,
		&p.ImageAltText, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}
