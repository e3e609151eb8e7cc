// Package migration brings the schema up to date at startup. AutoMigrate
// is additive only, so existing data is never rewritten.
package migration

import (
	auditdomain "github.com/receiptorhq/receiptor/internal/audit/domain"
	receiptdomain "github.com/receiptorhq/receiptor/internal/receipt/domain"
	ruledomain "github.com/receiptorhq/receiptor/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&receiptdomain.Receipt{},
		&ruledomain.Rule{},
		&auditdomain.Event{},
	)
	if err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return err
	}
	log.Info("schema migration complete")
	return nil
}
