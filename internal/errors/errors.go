package errors

import (
	stderrors "errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

// ConflictError reports a write against a stale order version or a reused
// idempotency key.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type StockFailureReason string

const (
	ReasonNotFound              StockFailureReason = "NOT_FOUND"
	ReasonOutOfStock            StockFailureReason = "OUT_OF_STOCK"
	ReasonInsufficientAvailable StockFailureReason = "INSUFFICIENT_AVAILABLE"
	ReasonProductInactive       StockFailureReason = "PRODUCT_INACTIVE"
)

type StockFailure struct {
	ProductID string             `json:"productId"`
	Quantity  int                `json:"quantity"`
	Available int                `json:"available"`
	Reason    StockFailureReason `json:"reason"`
}

// StockError rejects a whole order because one or more lines cannot be served.
type StockError struct {
	Failures []StockFailure
}

func (e *StockError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("product %s cannot be ordered: %s", f.ProductID, f.Reason)
	}
	return fmt.Sprintf("%d line items cannot be ordered", len(e.Failures))
}

func NewStockError(failures ...StockFailure) *StockError {
	return &StockError{Failures: failures}
}

func IsStockError(err error) (*StockError, bool) {
	var se *StockError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var ErrInvalidTransition = stderrors.New("invalid order status transition")

type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func NewTransitionError(from, to string) *TransitionError {
	return &TransitionError{From: from, To: to}
}

func IsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// NetworkError is raised by the order client when the backend cannot be
// reached or does not answer in time. Callers keep their local state and let
// the user retry.
type NetworkError struct {
	Op      string
	Timeout bool
	Cause   error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: server did not respond in time, try again", e.Op)
	}
	return fmt.Sprintf("%s: server unreachable, try again", e.Op)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

func NewNetworkError(op string, timeout bool, cause error) *NetworkError {
	return &NetworkError{Op: op, Timeout: timeout, Cause: cause}
}

func IsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
