// Package apperror defines the business failures surfaced to API clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindInsufficientQuantity
	KindDuplicateBarcode
	KindConflict
	KindUsernameExists
	KindBadCredentials
	KindInvalidRefreshToken
	KindTokenExpired
	KindInvalidToken
	KindAccessDenied
	KindUnauthenticated
)

// Error is a classified business failure. Two errors match under errors.Is
// when their codes are equal, so sentinels below can carry a custom message
// via Withf and still compare equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithDetails returns a copy of e carrying per-field details.
func (e *Error) WithDetails(details ...string) *Error {
	cp := *e
	cp.Details = append([]string(nil), details...)
	return &cp
}

// Wrap returns a copy of e that unwraps to cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

var (
	ErrProductNotFound   = &Error{Kind: KindNotFound, Code: "PRODUCT_NOT_FOUND", Message: "product not found"}
	ErrSupplierNotFound  = &Error{Kind: KindNotFound, Code: "SUPPLIER_NOT_FOUND", Message: "supplier not found"}
	ErrSaleNotFound      = &Error{Kind: KindNotFound, Code: "SALE_NOT_FOUND", Message: "sale not found"}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrValidation        = &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: "validation failed"}
	ErrMalformedBody     = &Error{Kind: KindValidation, Code: "MALFORMED_BODY", Message: "malformed request body"}
	ErrInsufficientQty   = &Error{Kind: KindInsufficientQuantity, Code: "INSUFFICIENT_QUANTITY", Message: "insufficient product quantity"}
	ErrDuplicateBarcode  = &Error{Kind: KindDuplicateBarcode, Code: "DUPLICATE_BARCODE", Message: "barcode must be unique"}
	ErrConflict          = &Error{Kind: KindConflict, Code: "DATA_INTEGRITY", Message: "data integrity violation"}
	ErrUsernameExists    = &Error{Kind: KindUsernameExists, Code: "USERNAME_ALREADY_EXISTS", Message: "username already exists"}
	ErrBadCredentials    = &Error{Kind: KindBadCredentials, Code: "BAD_CREDENTIALS", Message: "invalid credentials"}
	ErrInvalidRefresh    = &Error{Kind: KindInvalidRefreshToken, Code: "INVALID_REFRESH_TOKEN", Message: "invalid refresh token"}
	ErrTokenExpired      = &Error{Kind: KindTokenExpired, Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrInvalidToken      = &Error{Kind: KindInvalidToken, Code: "INVALID_TOKEN", Message: "invalid token"}
	ErrAccessDenied      = &Error{Kind: KindAccessDenied, Code: "ACCESS_DENIED", Message: "access denied"}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Code: "UNAUTHENTICATED", Message: "authentication required"}
	ErrAssistantDisabled = &Error{Kind: KindInternal, Code: "ASSISTANT_DISABLED", Message: "assistant is not configured"}
)

var statusByKind = map[Kind]int{
	KindNotFound:             http.StatusNotFound,
	KindValidation:           http.StatusBadRequest,
	KindInsufficientQuantity: http.StatusBadRequest,
	KindDuplicateBarcode:     http.StatusBadRequest,
	KindConflict:             http.StatusConflict,
	KindUsernameExists:       http.StatusBadRequest,
	KindBadCredentials:       http.StatusUnauthorized,
	KindInvalidRefreshToken:  http.StatusUnauthorized,
	KindTokenExpired:         http.StatusUnauthorized,
	KindInvalidToken:         http.StatusBadRequest,
	KindAccessDenied:         http.StatusForbidden,
	KindUnauthenticated:      http.StatusUnauthorized,
}

// HTTPStatus maps err to a response status. Unclassified errors are 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	if errors.Is(appErr, ErrAssistantDisabled) {
		return http.StatusServiceUnavailable
	}
	if status, ok := statusByKind[appErr.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Response is the JSON error body returned by every endpoint.
type Response struct {
	Message    string   `json:"message"`
	StatusCode int      `json:"statusCode"`
	Timestamp  string   `json:"timestamp"`
	Details    []string `json:"details,omitempty"`
}

// NewResponse builds the error body for err at the given status. Only
// classified errors expose their message; anything else gets a generic text.
func NewResponse(status int, err error, now time.Time) Response {
	resp := Response{
		Message:    "an unexpected error occurred",
		StatusCode: status,
		Timestamp:  now.Format(time.RFC3339),
	}
	if appErr, ok := As(err); ok {
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	}
	return resp
}
