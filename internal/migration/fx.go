package migration

import (
	"strings"

	"github.com/smallbiznis/eventledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module applies the schema on startup.
var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply runs the versioned postgres migrations. Other drivers are for local
// use and tests and get the schema from the gorm models.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !strings.EqualFold(cfg.DBType, "postgres") {
		log.Info("auto-migrating models", zap.String("db_type", cfg.DBType))
		return AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
