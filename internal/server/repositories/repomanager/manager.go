package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/server/repositories/posts"
)

// RepositoryManager vends repositories bound to a DBTX, so that callers can
// use the same repository code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Posts(db dbx.DBTX) posts.Repository
}
