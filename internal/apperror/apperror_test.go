package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ErrProductNotFound.Withf("product with barcode %s not found", "B1")
	require.True(t, errors.Is(err, ErrProductNotFound))
	require.False(t, errors.Is(err, ErrSaleNotFound))
	require.Equal(t, "product with barcode B1 not found", err.Message)
	require.Equal(t, "product not found", ErrProductNotFound.Message)

	wrapped := fmt.Errorf("create sale: %w", err)
	require.True(t, errors.Is(wrapped, ErrProductNotFound))
	got, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, "PRODUCT_NOT_FOUND", got.Code)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := ErrConflict.Wrap(cause)
	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrConflict)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrSaleNotFound, http.StatusNotFound},
		{ErrValidation.WithDetails("name: required"), http.StatusBadRequest},
		{ErrInsufficientQty, http.StatusBadRequest},
		{ErrDuplicateBarcode, http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{ErrUsernameExists, http.StatusBadRequest},
		{ErrBadCredentials, http.StatusUnauthorized},
		{ErrInvalidRefresh, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrInvalidToken, http.StatusBadRequest},
		{ErrAccessDenied, http.StatusForbidden},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrAssistantDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestNewResponseHidesInternalDetail(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	resp := NewResponse(http.StatusBadRequest, ErrValidation.WithDetails("name: required"), now)
	require.Equal(t, "validation failed", resp.Message)
	require.Equal(t, []string{"name: required"}, resp.Details)
	require.Equal(t, "2024-01-02T03:04:05Z", resp.Timestamp)

	resp = NewResponse(http.StatusInternalServerError, errors.New("pq: password authentication failed"), now)
	require.Equal(t, "an unexpected error occurred", resp.Message)
	require.Empty(t, resp.Details)
}
