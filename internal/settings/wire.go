package settings

import (
	"database/sql"

	"go.uber.org/zap"

	"storefront/internal/settings/repository"
)

func NewModule(db *sql.DB, logger *zap.Logger) (*Controller, *Service) {
	svc := NewService(repository.NewMySQLSettingsRepository(db), logger)
	return NewController(svc, logger), svc
}
