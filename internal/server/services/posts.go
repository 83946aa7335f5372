// Package services implements the post lifecycle on top of the repositories:
// validation before persistence, merge-on-update and not-found reporting.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/repomanager"
)

type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "post_service"),
	}
}

// List returns every post.
func (s *PostService) List(ctx context.Context) ([]*models.Post, error) {
	return s.repomanager.Posts(s.db).FindAll(ctx)
}

// FindByTitle returns the first post with exactly this title.
func (s *PostService) FindByTitle(ctx context.Context, title string) (*models.Post, error) {
	return s.repomanager.Posts(s.db).FindByTitle(ctx, title)
}

// Get returns the post with the given id or common.ErrorNotFound.
func (s *PostService) Get(ctx context.Context, id int) (*models.Post, error) {
	return s.repomanager.Posts(s.db).FindByID(ctx, id)
}

// Create validates p and stores it as given, including a client-supplied id.
// A client-supplied id moves the id sequence past it in the same transaction.
func (s *PostService) Create(ctx context.Context, p models.Post) (*models.Post, error) {
	if err := models.Validate(p); err != nil {
		return nil, err
	}

	var (
		saved *models.Post
		err   error
	)
	if p.ID == 0 {
		saved, err = s.repomanager.Posts(s.db).Save(ctx, &p)
	} else {
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Posts(tx)

			var err error
			if saved, err = repo.Save(ctx, &p); err != nil {
				return err
			}
			return repo.SyncIDSequence(ctx)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	s.logger.Info(ctx, "post created", "id", saved.ID, "user_id", saved.UserID)
	return saved, nil
}

// Update replaces title and body of post id with those of p. The stored id,
// author and version are kept; p's own values for them are ignored.
func (s *PostService) Update(ctx context.Context, id int, p models.Post) (*models.Post, error) {
	if err := models.Validate(p); err != nil {
		return nil, err
	}

	var saved *models.Post
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		merged := models.Merge(*existing, p)
		saved, err = repo.Save(ctx, &merged)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error updating post %d: %w", id, err)
	}

	s.logger.Info(ctx, "post updated", "id", saved.ID)
	return saved, nil
}

// Delete removes post id. Deleting a missing post succeeds.
func (s *PostService) Delete(ctx context.Context, id int) error {
	if err := s.repomanager.Posts(s.db).DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("error deleting post %d: %w", id, err)
	}

	s.logger.Info(ctx, "post deleted", "id", id)
	return nil
}
