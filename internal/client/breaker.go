package client

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
)

// BreakerRecorder receives circuit breaker state changes as
// 0 (closed), 1 (open) or 2 (half-open).
type BreakerRecorder interface {
	SetBreakerState(name string, state int)
}

func newBreaker(name string, recorder BreakerRecorder, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if recorder != nil {
		recorder.SetBreakerState(name, stateValue(gobreaker.StateClosed))
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Rejections the API answered on purpose (validation, stock, conflicts)
		// say nothing about server health.
		IsSuccessful: func(err error) bool {
			return err == nil || !isServerFailure(err)
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			if recorder != nil {
				recorder.SetBreakerState(cbName, stateValue(to))
			}
			logger.Info("circuit breaker state changed",
				zap.String("circuit", cbName),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func stateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func isServerFailure(err error) bool {
	if _, ok := apperrors.IsNetworkError(err); ok {
		return true
	}
	var ie *apperrors.InternalError
	return errors.As(err, &ie)
}
