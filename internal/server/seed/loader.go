// Package seed populates an empty posts table from a bundled dataset at startup.
package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/logging"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/repomanager"
)

// Loader seeds the posts table when it is empty.
type Loader struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	source      Source
	logger      logging.Logger
}

func NewLoader(db *sql.DB, m repomanager.RepositoryManager, src Source, l logging.Logger) *Loader {
	return &Loader{
		db:          db,
		repomanager: m,
		source:      src,
		logger:      l.With("module", "seed"),
	}
}

// Run loads the dataset if storage holds no posts and returns how many posts
// were inserted. An unreadable dataset yields an error wrapping
// common.ErrSeedUnreadable; nothing is written in that case.
func (l *Loader) Run(ctx context.Context) (int, error) {
	n, err := l.repomanager.Posts(l.db).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	if n > 0 {
		l.logger.Info(ctx, "posts already present, skipping seed", "count", n)
		return 0, nil
	}

	l.logger.Info(ctx, "loading posts into database", "source", l.source.Name())

	dataset, err := l.read(ctx)
	if err != nil {
		return 0, err
	}

	err = dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := l.repomanager.Posts(tx)
		for i := range dataset {
			if _, err := repo.Save(ctx, &dataset[i]); err != nil {
				return fmt.Errorf("save post %d: %w", dataset[i].ID, err)
			}
		}
		return repo.SyncIDSequence(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("seed posts: %w", err)
	}

	l.logger.Info(ctx, "posts loaded", "count", len(dataset))
	return len(dataset), nil
}

func (l *Loader) read(ctx context.Context) ([]models.Post, error) {
	raw, err := l.source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSeedUnreadable, err)
	}

	var doc models.Posts
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrSeedUnreadable, l.source.Name(), err)
	}
	return doc.Posts, nil
}
