package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

type spyBreakerRecorder struct {
	mu     sync.Mutex
	states []int
}

func (s *spyBreakerRecorder) SetBreakerState(_ string, state int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *spyBreakerRecorder) last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[len(s.states)-1]
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OrderClient, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewOrderClient(srv.URL, time.Second, nil, zap.NewNop()), &hits
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func sampleCreateRequest() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		TenantID:        "shop-a",
		CustomerName:    "Rahim",
		CustomerPhone:   "017",
		CustomerAddress: "House 1",
		Items:           []dto.OrderItemRequest{{ID: "p1", Name: "Tea", Price: decimal.NewFromInt(250), Quantity: 2}},
		Total:           decimal.NewFromInt(500),
		PaymentMethod:   "cash_on_delivery",
	}
}

// Unit Tests

func TestCreateOrder_Success(t *testing.T) {
	var gotKey, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(idempotencyHeader)
		gotPath = r.URL.Path
		writeBody(w, http.StatusCreated, `{"id":9,"tenantId":"shop-a","status":"pending","total":"500","items":[]}`)
	})

	order, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "key-1")
	require.NoError(t, err)

	assert.Equal(t, uint(9), order.ID)
	assert.Equal(t, "pending", order.Status)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "/api/v1/orders", gotPath)
}

func TestCreateOrder_MapsErrorEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"VALIDATION_ERROR","message":"validation failed","details":[{"field":"total","message":"total does not match"}]},"traceId":"t"}`,
			check: func(t *testing.T, err error) {
				ve, ok := apperrors.IsValidationError(err)
				require.True(t, ok)
				require.Len(t, ve.Details, 1)
				assert.Equal(t, "total", ve.Details[0].Field)
			},
		},
		{
			name:   "stock",
			status: http.StatusConflict,
			body:   `{"error":{"code":"OUT_OF_STOCK","message":"x","details":[{"productId":"p1","quantity":2,"available":0,"reason":"OUT_OF_STOCK"}]},"traceId":"t"}`,
			check: func(t *testing.T, err error) {
				se, ok := apperrors.IsStockError(err)
				require.True(t, ok)
				require.Len(t, se.Failures, 1)
				assert.Equal(t, apperrors.ReasonOutOfStock, se.Failures[0].Reason)
			},
		},
		{
			name:   "transition",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":{"code":"INVALID_TRANSITION","message":"x","details":{"from":"delivered","to":"pending"}},"traceId":"t"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
				te, ok := apperrors.IsTransitionError(err)
				require.True(t, ok)
				assert.Equal(t, "delivered", te.From)
			},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"error":{"code":"CONFLICT","message":"idempotency key reused"},"traceId":"t"}`,
			check: func(t *testing.T, err error) {
				_, ok := apperrors.IsConflictError(err)
				assert.True(t, ok)
			},
		},
		{
			name:   "server error without envelope",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				assert.True(t, isServerFailure(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeBody(w, tt.status, tt.body)
			})
			_, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCreateOrder_UnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := NewOrderClient(baseURL, time.Second, nil, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "k")

	ne, ok := apperrors.IsNetworkError(err)
	require.True(t, ok)
	assert.False(t, ne.Timeout)
	assert.Contains(t, err.Error(), "server unreachable")
}

func TestCreateOrder_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewOrderClient(srv.URL, 50*time.Millisecond, nil, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "k")

	ne, ok := apperrors.IsNetworkError(err)
	require.True(t, ok)
	assert.True(t, ne.Timeout)
}

func TestBreaker_OpensOnServerFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeBody(w, http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"boom"},"traceId":"t"}`)
	}))
	defer srv.Close()

	recorder := &spyBreakerRecorder{}
	c := NewOrderClient(srv.URL, time.Second, recorder, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "k")
		require.Error(t, err)
	}

	_, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "k")
	ne, ok := apperrors.IsNetworkError(err)
	require.True(t, ok)
	assert.ErrorIs(t, ne, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, recorder.last())
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusBadRequest, `{"error":{"code":"VALIDATION_ERROR","message":"bad"},"traceId":"t"}`)
	})

	for i := 0; i < 5; i++ {
		_, err := c.CreateOrder(context.Background(), sampleCreateRequest(), "k")
		_, ok := apperrors.IsValidationError(err)
		require.True(t, ok)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(hits))
}

func TestDeliverySettings(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeBody(w, http.StatusOK, `{"tenantId":"shop-a","insideRegionCharge":"60","outsideRegionCharge":"120","freeDeliveryMinimum":"1000","vatRate":"0","insideDivision":"","trackStock":true}`)
	})

	s, err := c.DeliverySettings(context.Background(), "shop-a")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/stores/shop-a/delivery-settings", gotPath)
	assert.True(t, s.InsideRegionCharge.Equal(decimal.NewFromInt(60)))
	require.NotNil(t, s.FreeDeliveryMinimum)
	assert.True(t, s.FreeDeliveryMinimum.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "Dhaka", s.InsideDivision)
	assert.True(t, s.TrackStock)
}
