// Package httpio holds the JSON request and response helpers shared by the
// HTTP controllers.
package httpio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeOutOfStock        = "OUT_OF_STOCK"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeDeadlock          = "DEADLOCK"
	CodeInternal          = "INTERNAL_ERROR"
)

const maxBodyBytes = 1 << 20

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the envelope every failed request returns.
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"traceId"`
}

// TransitionDetails is attached to INVALID_TRANSITION errors.
type TransitionDetails struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type traceKey struct{}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the request's trace id, minting one if no middleware set it.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok && v != "" {
		return v
	}
	return uuid.New().String()
}

func WriteJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// WriteError maps a typed error to its status code and envelope. Unknown
// errors are logged and reported as 500 without leaking their text.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	status, body := classify(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
	}
	WriteJSON(w, status, ErrorResponse{Error: body, TraceID: traceID}, logger)
}

func classify(err error) (int, ErrorBody) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		body := ErrorBody{Code: CodeValidation, Message: ve.Message}
		if len(ve.Details) > 0 {
			body.Details = ve.Details
		}
		return http.StatusBadRequest, body
	}
	if se, ok := apperrors.IsStockError(err); ok {
		return http.StatusConflict, ErrorBody{Code: CodeOutOfStock, Message: se.Error(), Details: se.Failures}
	}
	if te, ok := apperrors.IsTransitionError(err); ok {
		return http.StatusUnprocessableEntity, ErrorBody{
			Code:    CodeInvalidTransition,
			Message: te.Error(),
			Details: TransitionDetails{From: te.From, To: te.To},
		}
	}
	if nf, ok := apperrors.IsNotFoundError(err); ok {
		return http.StatusNotFound, ErrorBody{Code: CodeNotFound, Message: nf.Message}
	}
	if ce, ok := apperrors.IsConflictError(err); ok {
		return http.StatusConflict, ErrorBody{Code: CodeConflict, Message: ce.Message}
	}
	if de, ok := apperrors.IsDeadlockError(err); ok {
		return http.StatusConflict, ErrorBody{Code: CodeDeadlock, Message: de.Message}
	}
	return http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: "an unexpected error occurred"}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// DecodeAndValidate decodes a JSON body into dst and runs its validate tags.
// Every failure comes back as a ValidationError.
func DecodeAndValidate(r *http.Request, dst any) error {
	defer io.Copy(io.Discard, r.Body)

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: bodyErrorMessage(err),
		})
	}
	return Validate(dst)
}

// Validate runs the struct's validate tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{Field: "body", Message: err.Error()})
	}
	details := make([]apperrors.ValidationDetail, 0, len(errs))
	for _, fe := range errs {
		details = append(details, apperrors.ValidationDetail{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return apperrors.NewValidationError("validation failed", details...)
}

func bodyErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	}
	if errors.Is(err, io.EOF) {
		return "request body must not be empty"
	}
	if strings.HasPrefix(err.Error(), "json: unknown field") {
		return strings.TrimPrefix(err.Error(), "json: ")
	}
	return "request body must be valid JSON"
}

// fieldPath drops the root struct name from the validator namespace, so
// "createOrderRequest.items[0].quantity" becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s entries", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s exceeds maximum of %s entries", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "email":
		return name + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	}
	return name + " is invalid"
}

// QueryInt parses an optional integer query parameter within [min, max].
func QueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		return 0, apperrors.NewValidationError("invalid query parameter", apperrors.ValidationDetail{
			Field:   key,
			Message: fmt.Sprintf("%s must be an integer between %d and %d", key, min, max),
		})
	}
	return value, nil
}
