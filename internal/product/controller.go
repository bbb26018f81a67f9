package product

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
	"storefront/internal/httpio"
)

const maxLookupIDs = 100

type Controller struct {
	catalog CatalogService
	logger  *zap.Logger
}

func NewController(catalog CatalogService, logger *zap.Logger) *Controller {
	return &Controller{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleLookupProducts serves GET /stores/{tenantId}/products?ids=a,b.
func (c *Controller) HandleLookupProducts(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantId"))
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	resp, err := c.catalog.Lookup(r.Context(), tenantID, ids)
	if err != nil {
		logger.Error("product lookup failed", zap.Error(err))
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	httpio.WriteJSON(w, http.StatusOK, resp, logger)
}

// HandleCheckCart serves POST /stores/{tenantId}/cart/check.
func (c *Controller) HandleCheckCart(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantId"))
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	var req CheckCartRequest
	if err := httpio.DecodeAndValidate(r, &req); err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	resp, err := c.catalog.CheckCart(r.Context(), tenantID, req.Items)
	if err != nil {
		logger.Error("cart check failed", zap.Error(err))
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	if !resp.Orderable {
		logger.Debug("cart no longer matches catalog", zap.Int("lineCount", len(resp.Lines)))
	}

	httpio.WriteJSON(w, http.StatusOK, resp, logger)
}

func parseIDs(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ids is required", apperrors.ValidationDetail{
			Field:   "ids",
			Message: "ids must not be empty",
		})
	}
	if len(ids) > maxLookupIDs {
		return nil, apperrors.NewValidationError("too many ids", apperrors.ValidationDetail{
			Field:   "ids",
			Message: "ids exceeds maximum of 100",
		})
	}
	return ids, nil
}
