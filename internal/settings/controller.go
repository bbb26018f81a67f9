package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/httpio"
)

type Controller struct {
	service *Service
	logger  *zap.Logger
}

func NewController(service *Service, logger *zap.Logger) *Controller {
	return &Controller{service: service, logger: logger}
}

func (c *Controller) HandleGet(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := chi.URLParam(r, "tenantId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	s, err := c.service.ForTenant(r.Context(), tenantID)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, ToResponse(s), logger)
}

func (c *Controller) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := chi.URLParam(r, "tenantId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	var req UpdateSettingsRequest
	if err := httpio.DecodeAndValidate(r, &req); err != nil {
		logger.Warn("invalid delivery settings request", zap.Error(err))
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	s, err := c.service.Update(r.Context(), tenantID, req)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, ToResponse(s), logger)
}
