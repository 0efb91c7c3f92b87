package validation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
)

func TestValidator(t *testing.T) {
	v := NewValidator().
		Required("orderId", " ").
		UUID("userId", "not-a-uuid").
		OneOf("kind", "teleported", []string{"new_order", "shipped"}).
		OneOf("status", "", []string{"PAID"})

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors().Errors, 3)
	assert.Contains(t, v.Errors().Errors, "orderId")
	assert.Contains(t, v.Errors().Errors, "userId")
	assert.Contains(t, v.Errors().Errors, "kind")

	var verrs *apperrors.ValidationErrors
	assert.True(t, errors.As(v.Err(), &verrs))

	assert.NoError(t, NewValidator().Required("a", "b").UUID("id", "").Err())

	custom := NewValidator().
		Custom("orderId", false, "Must not contain whitespace").
		Custom("kind", true, "unused")
	require.True(t, custom.HasErrors())
	assert.Equal(t, []string{"Must not contain whitespace"}, custom.Errors().Errors["orderId"])
	assert.NotContains(t, custom.Errors().Errors, "kind")
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		OrderID string `json:"orderId"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"orderId":"ORD-1"}`))
	got, err := DecodeJSON[body](httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.OrderID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"orderId":"ORD-1","extra":1}`))
	_, err = DecodeJSON[body](httptest.NewRecorder(), req)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	_, err = DecodeJSON[body](httptest.NewRecorder(), req)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Request body is required", appErr.Message)
}

func TestParseIDParam(t *testing.T) {
	withParam := func(v string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("shopID", v)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := ParseIDParam(withParam("42"), "shopID")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := ParseIDParam(withParam(bad), "shopID")
		assert.ErrorIs(t, err, apperrors.ErrBadRequest, bad)
	}
}

func TestParseIntQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&bad=x&neg=-1", nil)
	assert.Equal(t, 50, ParseIntQueryParam(req, "limit", 20))
	assert.Equal(t, 20, ParseIntQueryParam(req, "bad", 20))
	assert.Equal(t, 20, ParseIntQueryParam(req, "neg", 20))
	assert.Equal(t, 20, ParseIntQueryParam(req, "missing", 20))
}
