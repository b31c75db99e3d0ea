package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksentry/stocksentry/internal/availability"
	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/model"
)

func testRouter(check CheckFn, trigger TriggerFn) http.Handler {
	h := NewHandlers(check, trigger, nil, slog.Default())
	return NewRouter(config.ServerConfig{}, h)
}

func TestHealth(t *testing.T) {
	router := testRouter(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCheckProduct(t *testing.T) {
	check := func(ctx context.Context, url string) (availability.Result, error) {
		return availability.Result{
			Status: model.StatusAvailable,
			Reason: `found indicator "buy now"`,
			Price:  "$9.99",
		}, nil
	}
	router := testRouter(check, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check",
		strings.NewReader(`{"url":"https://shop.example.com/p/1"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "available", resp["status"])
	assert.Equal(t, "$9.99", resp["price"])
}

func TestCheckProductRequiresURL(t *testing.T) {
	router := testRouter(nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(`{}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckProductReportsErrorStatus(t *testing.T) {
	check := func(ctx context.Context, url string) (availability.Result, error) {
		return availability.Result{Status: model.StatusError, Reason: "timeout"},
			errors.New("timeout")
	}
	router := testRouter(check, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/check",
		strings.NewReader(`{"url":"https://shop.example.com/p/1"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
}

func TestTriggerRun(t *testing.T) {
	trigger := func(ctx context.Context) (*model.RunResult, error) {
		return &model.RunResult{RunID: "run-1", TotalChecked: 2}, nil
	}
	router := testRouter(nil, trigger)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")
}

func TestListRunsWithoutStore(t *testing.T) {
	router := testRouter(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
