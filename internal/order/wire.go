package order

import (
	"database/sql"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/order/controller"
	orderrepo "storefront/internal/order/repository"
	"storefront/internal/order/service"
	"storefront/internal/order/usecase"
	productrepo "storefront/internal/product/repository"
)

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	settings usecase.SettingsProvider,
	recorder usecase.Recorder,
	logger *zap.Logger,
) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	orderItemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	productRepo := productrepo.NewMySQLRepository(db)

	orderSvc := service.NewOrderService(
		db,
		productRepo,
		orderItemRepo,
		orderRepo,
		logger,
		cfg.Order.TxTimeout,
	)

	place := usecase.NewPlaceOrderUseCase(
		settings,
		orderSvc,
		recorder,
		logger,
		cfg.Order.MaxRetryAttempts,
	)
	manage := usecase.NewManageOrderUseCase(
		orderRepo,
		orderSvc,
		settings,
		recorder,
		logger,
		cfg.Stats.ProfitMargin,
	)

	return controller.NewOrderController(place, manage, logger)
}
