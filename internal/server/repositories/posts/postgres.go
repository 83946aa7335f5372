// Package posts provides the PostgreSQL-backed repository for posts.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p       models.Post
		version sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &version); err != nil {
		return nil, err
	}
	if version.Valid {
		v := int(version.Int64)
		p.Version = &v
	}
	return &p, nil
}

// FindAll returns every stored post ordered by id.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]*models.Post, error) {
	query := `SELECT id, user_id, title, body, version FROM posts ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByID returns the post with the given id or common.ErrorNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id int) (*models.Post, error) {
	query := `SELECT id, user_id, title, body, version FROM posts WHERE id = $1`

	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// FindByTitle returns the lowest-id post whose title matches exactly, or
// common.ErrorNotFound.
func (r *PostgresRepository) FindByTitle(ctx context.Context, title string) (*models.Post, error) {
	query := `SELECT id, user_id, title, body, version FROM posts WHERE title = $1 ORDER BY id LIMIT 1`

	p, err := scanPost(r.db.QueryRowContext(ctx, query, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Save stores post and returns the stored row.
//
// A zero ID inserts a new row with a storage-assigned id. Otherwise the row is
// upserted on id; an existing row is only overwritten while its version equals
// post.Version (NULL equals NULL), else common.ErrVersionConflict is returned.
func (r *PostgresRepository) Save(ctx context.Context, post *models.Post) (*models.Post, error) {
	if post.ID == 0 {
		return r.insert(ctx, post)
	}

	query := `
		INSERT INTO posts (id, user_id, title, body, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			body = EXCLUDED.body
			WHERE posts.version IS NOT DISTINCT FROM EXCLUDED.version
		RETURNING id, user_id, title, body, version
	`
	saved, err := scanPost(r.db.QueryRowContext(ctx, query,
		post.ID, post.UserID, post.Title, post.Body, post.Version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrVersionConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func (r *PostgresRepository) insert(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (user_id, title, body, version)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, title, body, version
	`
	saved, err := scanPost(r.db.QueryRowContext(ctx, query,
		post.UserID, post.Title, post.Body, post.Version))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

// DeleteByID removes the post if present. Deleting a missing id is not an error.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id int) error {
	query := `DELETE FROM posts WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Count returns the number of stored posts.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM posts`

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// SyncIDSequence moves the id identity sequence past the largest stored id so
// that storage-assigned ids do not collide with explicitly supplied ones.
func (r *PostgresRepository) SyncIDSequence(ctx context.Context) error {
	query := `SELECT setval(pg_get_serial_sequence('posts', 'id'), COALESCE((SELECT MAX(id) FROM posts), 0) + 1, false)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
