package apperrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels survive Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base carrying err as its cause. The shared sentinels
// are never mutated.
func Wrap(base *Error, err error) *Error {
	return &Error{Code: base.Code, Kind: base.Kind, Message: base.Message, Err: err}
}

// WithMessage returns a copy of base with a different user-facing message.
func WithMessage(base *Error, message string) *Error {
	return &Error{Code: base.Code, Kind: base.Kind, Message: message, Err: base.Err}
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "bad_request", "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
	ErrNotFound       = New(http.StatusNotFound, "not_found", "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "internal", "Internal server error", nil)
)

// Checkout and payment error types
var (
	ErrAuthenticationRequired = New(http.StatusUnauthorized, "authentication_required", "Please sign in to complete your purchase", nil)
	ErrAuthLoading            = New(http.StatusConflict, "auth_loading", "Checking authentication status...", nil)
	ErrInvalidAmount          = New(http.StatusBadRequest, "invalid_amount", "The payment amount is invalid", nil)
	ErrMissingCustomerInfo    = New(http.StatusBadRequest, "missing_customer_info", "Missing required customer information", nil)
	ErrSDKUnavailable         = New(http.StatusServiceUnavailable, "sdk_unavailable", "Failed to load payment SDK", nil)
	ErrGatewayCancelled       = New(http.StatusPaymentRequired, "gateway_cancelled", "Payment cancelled", nil)
	ErrGatewayFailure         = New(http.StatusBadGateway, "gateway_failure", "Payment processing failed", nil)
	ErrUnexpected             = New(http.StatusInternalServerError, "unexpected", "An unexpected error occurred", nil)
	ErrPaymentInProgress      = New(http.StatusConflict, "in_progress", "A payment is already being processed", nil)
	ErrAlreadyResolved        = New(http.StatusConflict, "already_resolved", "Payment attempt already resolved", nil)
	ErrVerificationFailed     = New(http.StatusBadGateway, "gateway_failure", "Payment verification failed", nil)
	ErrSessionClosed          = New(http.StatusServiceUnavailable, "session_closed", "Payment session closed", nil)
)

var byKind = map[string]*Error{}

func init() {
	for _, e := range []*Error{
		ErrBadRequest, ErrUnauthorized, ErrNotFound, ErrInternalServer,
		ErrAuthenticationRequired, ErrAuthLoading, ErrInvalidAmount, ErrMissingCustomerInfo,
		ErrSDKUnavailable, ErrGatewayCancelled, ErrGatewayFailure, ErrUnexpected,
		ErrPaymentInProgress, ErrAlreadyResolved, ErrSessionClosed,
	} {
		byKind[e.Kind] = e
	}
}

// ForKind returns the sentinel registered for kind, or ErrInternalServer.
func ForKind(kind string) *Error {
	if e, ok := byKind[kind]; ok {
		return e
	}
	return ErrInternalServer
}

// Kind classifies err for logs, metrics and response bodies.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// From converts any error into an *Error suitable for a response body.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: HTTPStatus(err), Kind: Kind(err), Message: ErrInternalServer.Message, Err: err}
}

// ErrorMiddleware renders the last error attached with c.Error as
// {"error": {"kind": ..., "message": ...}}.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := From(c.Errors.Last().Err)
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr})
	}
}
