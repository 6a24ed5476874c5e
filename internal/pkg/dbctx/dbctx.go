package dbctx

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/jobassist-backend/internal/pkg/ctxutil"
)

// Context carries the request context and an optional open transaction
// through repository calls.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction when one is open, otherwise fallback, bound to
// the carried context.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	db := c.Tx
	if db == nil {
		db = fallback
	}
	return db.WithContext(ctxutil.Default(c.Ctx))
}
