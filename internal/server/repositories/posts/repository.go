package posts

import (
	"context"

	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

// Repository is the storage contract for posts. Lookups report absence with
// common.ErrorNotFound; Save reports a stale version with common.ErrVersionConflict.
type Repository interface {
	FindAll(ctx context.Context) ([]*models.Post, error)
	FindByID(ctx context.Context, id int) (*models.Post, error)
	FindByTitle(ctx context.Context, title string) (*models.Post, error)
	Save(ctx context.Context, post *models.Post) (*models.Post, error)
	DeleteByID(ctx context.Context, id int) error
	Count(ctx context.Context) (int64, error)
	SyncIDSequence(ctx context.Context) error
}
