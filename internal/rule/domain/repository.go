package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *Rule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Rule, error)
	// List returns rules newest-first (created_at desc, id desc); this
	// ordering is the classification priority and must not change.
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]*Rule, error)
	Update(ctx context.Context, db *gorm.DB, rule *Rule) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
