// Package client talks to the storefront order API and drives checkout from a
// local cart.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/httpio"
	"storefront/internal/settings"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	breakerName       = "order-api"
)

// errorEnvelope mirrors httpio.ErrorResponse with details left raw so they
// can be decoded per error code.
type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	TraceID string `json:"traceId"`
}

// OrderClient calls the order API once per operation. It never retries on its
// own; failures to reach the server come back as NetworkError.
type OrderClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewOrderClient(baseURL string, timeout time.Duration, recorder BreakerRecorder, logger *zap.Logger) *OrderClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OrderClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Accept", "application/json"),
		breaker: newBreaker(breakerName, recorder, logger),
		logger:  logger,
	}
}

// CreateOrder submits req. Reusing idempotencyKey for a repeated submission
// of the same request returns the originally created order.
func (c *OrderClient) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*dto.OrderResponse, error) {
	var out dto.OrderResponse
	err := c.do(ctx, "create order", http.StatusCreated, &out, func(r *resty.Request) (*resty.Response, error) {
		if idempotencyKey != "" {
			r.SetHeader(idempotencyHeader, idempotencyKey)
		}
		return r.SetHeader("Content-Type", "application/json").
			SetBody(req).
			Post("/api/v1/orders")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OrderClient) DeliverySettings(ctx context.Context, tenantID string) (domain.DeliverySettings, error) {
	var out settings.SettingsResponse
	err := c.do(ctx, "load delivery settings", http.StatusOK, &out, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/v1/stores/" + url.PathEscape(tenantID) + "/delivery-settings")
	})
	if err != nil {
		return domain.DeliverySettings{}, err
	}
	return settings.FromResponse(out), nil
}

func (c *OrderClient) do(ctx context.Context, op string, wantStatus int, out any, send func(*resty.Request) (*resty.Response, error)) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := send(c.http.R().SetContext(ctx))
		if err != nil {
			return nil, apperrors.NewNetworkError(op, isTimeout(err), err)
		}
		if resp.StatusCode() != wantStatus {
			return nil, decodeError(op, resp)
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, apperrors.NewInternalError(op+": invalid response body", err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("order api circuit open", zap.String("op", op))
		return apperrors.NewNetworkError(op, false, err)
	}
	return err
}

// decodeError maps the API error envelope back onto the typed errors the
// server raised.
func decodeError(op string, resp *resty.Response) error {
	var env errorEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil || env.Error.Code == "" {
		if resp.StatusCode() >= 500 {
			return apperrors.NewInternalError(fmt.Sprintf("%s: server returned %d", op, resp.StatusCode()), nil)
		}
		return apperrors.NewInternalError(fmt.Sprintf("%s: unexpected status %d", op, resp.StatusCode()), nil)
	}

	msg := env.Error.Message
	switch env.Error.Code {
	case httpio.CodeValidation:
		var details []apperrors.ValidationDetail
		_ = json.Unmarshal(env.Error.Details, &details)
		return apperrors.NewValidationError(msg, details...)
	case httpio.CodeOutOfStock:
		var failures []apperrors.StockFailure
		_ = json.Unmarshal(env.Error.Details, &failures)
		return apperrors.NewStockError(failures...)
	case httpio.CodeInvalidTransition:
		var details httpio.TransitionDetails
		_ = json.Unmarshal(env.Error.Details, &details)
		return apperrors.NewTransitionError(details.From, details.To)
	case httpio.CodeNotFound:
		return apperrors.NewNotFoundError(msg)
	case httpio.CodeConflict:
		return apperrors.NewConflictError(msg)
	case httpio.CodeDeadlock:
		return apperrors.NewDeadlockError(msg)
	}
	return apperrors.NewInternalError(fmt.Sprintf("%s: %s (trace %s)", op, msg, env.TraceID), nil)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
