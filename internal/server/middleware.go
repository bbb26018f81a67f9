package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
	"storefront/internal/httpio"
	"storefront/internal/infrastructure/redis"
)

const (
	requestIDHeader   = "X-Request-Id"
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	// lifetime of the in-flight marker; a crashed request frees its key after this
	pendingTTL = 30 * time.Second
)

// RequestID propagates X-Request-Id, minting one when absent, and stores it as
// the trace id used in error envelopes.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(httpio.WithTraceID(r.Context(), reqID)))
	})
}

func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("traceId", httpio.TraceID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", statusOf(ww)),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				traceID := httpio.TraceID(r.Context())
				logger.Error("panic recovered",
					zap.String("traceId", traceID),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				httpio.WriteError(w, traceID, fmt.Errorf("panic: %v", rec), nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPObserver records request counts and latencies.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, duration time.Duration)
}

// Metrics labels requests by chi route pattern so path parameters do not
// explode label cardinality.
func Metrics(observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			observer.ObserveHTTP(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		})
	}
}

// IdempotencyStore is the subset of the redis client used for idempotency records.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through. Only 2xx responses are kept, so a
// rejected placement can be retried with the same key once the cause is fixed.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idempotencyKey == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			traceID := httpio.TraceID(r.Context())
			logger := logger.With(zap.String("traceId", traceID), zap.String("idempotencyKey", idempotencyKey))

			body, err := io.ReadAll(r.Body)
			if err != nil {
				httpio.WriteError(w, traceID, apperrors.NewValidationError("could not read request body"), logger)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(r.Method+"|"+r.URL.Path, idempotencyKey)

			pending, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
			acquired, err := store.SetNX(r.Context(), key, string(pending), pendingTTL)
			if err != nil {
				httpio.WriteError(w, traceID, fmt.Errorf("acquire idempotency key: %w", err), logger)
				return
			}
			if !acquired {
				replayStored(w, r, store, key, requestHash, traceID, logger)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status < 200 || status >= 300 {
				if err := store.Del(context.WithoutCancel(r.Context()), key); err != nil {
					logger.Error("failed to release idempotency key", zap.Error(err))
				}
				return
			}

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logger.Error("failed to marshal idempotency record", zap.Error(err))
				return
			}
			if err := store.Set(context.WithoutCancel(r.Context()), key, string(payload), ttl); err != nil {
				logger.Error("failed to persist idempotency record", zap.Error(err))
			}
		})
	}
}

func replayStored(w http.ResponseWriter, r *http.Request, store IdempotencyStore, key, requestHash, traceID string, logger *zap.Logger) {
	stored, err := store.Get(r.Context(), key)
	if redis.IsNil(err) {
		httpio.WriteError(w, traceID, apperrors.NewConflictError("a request with this idempotency key was just released, retry"), logger)
		return
	}
	if err != nil {
		httpio.WriteError(w, traceID, fmt.Errorf("check idempotency key: %w", err), logger)
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		httpio.WriteError(w, traceID, fmt.Errorf("decode idempotency record: %w", err), logger)
		return
	}
	if record.RequestHash != requestHash {
		logger.Warn("idempotency key reused with a different body")
		httpio.WriteError(w, traceID, apperrors.NewConflictError("idempotency key reused with a different request body"), logger)
		return
	}
	if record.Pending {
		httpio.WriteError(w, traceID, apperrors.NewConflictError("a request with this idempotency key is in progress"), logger)
		return
	}

	logger.Info("replaying stored response", zap.Int("status", record.Status))
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func statusOf(ww chimw.WrapResponseWriter) int {
	return defaultStatus(ww.Status())
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
