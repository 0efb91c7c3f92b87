package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"unauthorized", ErrUnauthorized, 401, "UNAUTHORIZED", "Authentication required"},
		{"forbidden wrapped", fmt.Errorf("join shop 43: %w", ErrForbidden), 403, "FORBIDDEN", "You do not have access to this shop"},
		{"shop not found", ErrShopNotFound, 404, "SHOP_NOT_FOUND", "Shop not found"},
		{"order not found", fmt.Errorf("load ORD-1: %w", ErrOrderNotFound), 404, "ORDER_NOT_FOUND", "Order not found"},
		{"generic not found", ErrNotFound, 404, "NOT_FOUND", "Resource not found"},
		{"invalid event", fmt.Errorf("%w: buyer name is required", ErrInvalidEvent), 422, "INVALID_EVENT", "invalid order event: buyer name is required"},
		{"invalid transition", ErrInvalidTransition, 422, "INVALID_EVENT", "invalid order transition"},
		{"bad request", ErrBadRequest, 400, "BAD_REQUEST", "bad request"},
		{"rate limited", ErrRateLimited, 429, "RATE_LIMITED", "Too many requests. Please try again later."},
		{"unknown", errors.New("connection reset"), 500, "INTERNAL_ERROR", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.message, got.Message)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestFromError_KeepsAppError(t *testing.T) {
	appErr := NewBadRequestError(ErrBadRequest, "Invalid shopID")
	wrapped := fmt.Errorf("parse params: %w", appErr)

	assert.Same(t, appErr, FromError(wrapped))
	assert.Equal(t, "Invalid shopID", appErr.Error())
}
