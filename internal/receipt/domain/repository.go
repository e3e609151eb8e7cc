package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter is a conjunction over category, status and a case-insensitive
// substring match against filename or extracted vendor name.
type ListFilter struct {
	Category string
	Status   Status
	Search   string
	Limit    int
	Offset   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, receipt *Receipt) error

	// FindByID returns (nil, nil) when the id is unknown.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Receipt, error)

	// Update writes the full record in one statement so readers never
	// observe a partially applied extraction result.
	Update(ctx context.Context, db *gorm.DB, receipt *Receipt) error

	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// Recent returns up to limit receipts, newest first.
	Recent(ctx context.Context, db *gorm.DB, limit int) ([]*Receipt, error)

	// List returns matching receipts in insertion order (id asc) plus the
	// total match count before limit/offset.
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Receipt, int64, error)
}
