package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsconsole/internal/apperror"
	"opsconsole/internal/zoho"
)

func TestLookupHandler(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/external/currencies", h.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.EqualValues(t, 2, *env.Count)
	var currencies []zoho.Currency
	require.NoError(t, json.Unmarshal(env.Data, &currencies))
	assert.Equal(t, "USD", currencies[0].CurrencyCode)

	w = h.do(t, http.MethodGet, "/api/external/items", h.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestLookupHandler_UpstreamErrors(t *testing.T) {
	h := newHarness(t)

	h.lookup.err = &zoho.UpstreamAuthError{Reason: "invalid_client"}
	w := h.do(t, http.MethodGet, "/api/external/accounts", h.staff, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.lookup.err = &zoho.SyncError{Operation: "list locations", StatusCode: 500, Message: "boom"}
	w = h.do(t, http.MethodGet, "/api/external/locations", h.staff, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAuditHandler(t *testing.T) {
	h := newHarness(t)
	a := submitAccount(t, h, "1000")

	w := h.do(t, http.MethodGet, "/api/audit-logs", h.staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodGet, "/api/audit-logs?entity_kind=account&entity_id="+a.ID, h.ceo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.EqualValues(t, 1, *env.Count)
	var logs []struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	assert.Equal(t, "SUBMIT", logs[0].Action)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","dependencies":{"database":"OK"}}`, w.Body.String())

	r := gin.New()
	r.GET("/health", Health(map[string]Pinger{"redis": func(context.Context) error { return errors.New("down") }}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"DEGRADED"`)
}

func TestRouter_NoRoute(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/api/nope", h.staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperror.NewValidation("name", "is required"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", apperror.ErrUnauthorized), http.StatusUnauthorized},
		{apperror.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("account x: %w", apperror.ErrNotFound), http.StatusNotFound},
		{apperror.ErrConflict, http.StatusConflict},
		{apperror.ErrDuplicate, http.StatusConflict},
		{&zoho.SyncError{Operation: "create item", StatusCode: 400}, http.StatusBadGateway},
		{fmt.Errorf("token: %w", &zoho.UpstreamAuthError{}), http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
			env := decode(t, w)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tc.code, env.StatusCode)
			assert.NotContains(t, env.Message, "disk on fire")
		})
	}
}
