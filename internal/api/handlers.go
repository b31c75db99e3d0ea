// Package api exposes the monitor over HTTP: health, run history,
// on-demand availability checks and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stocksentry/stocksentry/internal/availability"
	"github.com/stocksentry/stocksentry/internal/model"
	"github.com/stocksentry/stocksentry/internal/store"
)

// CheckFn runs one availability check. The server stays decoupled from
// the browser stack behind it.
type CheckFn func(ctx context.Context, url string) (availability.Result, error)

// TriggerFn starts a full scrape run.
type TriggerFn func(ctx context.Context) (*model.RunResult, error)

type Handlers struct {
	check   CheckFn
	trigger TriggerFn
	store   *store.Store
	logger  *slog.Logger
}

func NewHandlers(check CheckFn, trigger TriggerFn, st *store.Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		check:   check,
		trigger: trigger,
		store:   st,
		logger:  logger,
	}
}

type checkRequest struct {
	URL string `json:"url"`
}

type checkResponse struct {
	URL              string   `json:"url"`
	Status           string   `json:"status"`
	Reason           string   `json:"reason,omitempty"`
	Price            string   `json:"price,omitempty"`
	PriceNumeric     *float64 `json:"price_numeric,omitempty"`
	QuantityDisabled bool     `json:"quantity_disabled"`
}

// CheckProduct handles POST /api/v1/check.
func (h *Handlers) CheckProduct(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.check(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("on-demand check failed", "url", req.URL, "error", err)
	}

	h.respondJSON(w, http.StatusOK, checkResponse{
		URL:              req.URL,
		Status:           string(result.Status),
		Reason:           result.Reason,
		Price:            result.Price,
		PriceNumeric:     result.PriceNumeric,
		QuantityDisabled: result.QuantityDisabled,
	})
}

// TriggerRun handles POST /api/v1/runs.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.trigger(r.Context())
	if err != nil {
		h.logger.Error("triggered run failed", "error", err)
		body := map[string]any{"error": err.Error()}
		if result != nil {
			body["run_id"] = result.RunID
		}
		h.respondJSON(w, http.StatusBadGateway, body)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// ListRuns handles GET /api/v1/runs.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotImplemented, "persistence is not enabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	runs, err := h.store.RecentRuns(r.Context(), limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}
	h.respondJSON(w, http.StatusOK, runs)
}

// ProductHistory handles GET /api/v1/products/history?url=.
func (h *Handlers) ProductHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotImplemented, "persistence is not enabled")
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		h.respondError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	history, err := h.store.ProductHistory(r.Context(), url, 50)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	h.respondJSON(w, http.StatusOK, history)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
