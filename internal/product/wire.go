package product

import (
	"database/sql"

	"go.uber.org/zap"

	"storefront/internal/product/repository"
)

func NewModule(db *sql.DB, logger *zap.Logger) *Controller {
	return NewController(NewCatalog(repository.NewMySQLRepository(db)), logger)
}
