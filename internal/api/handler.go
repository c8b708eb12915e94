// Package api exposes the route finder over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"routeScope/internal/model"
	"routeScope/internal/router"
)

// Finder is the read side of the router.
type Finder interface {
	FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amount float64) (model.Route, error)
	Pools() []model.Pool
	Stats() router.Stats
}

const maxBodyBytes = 1 << 16

type Handler struct {
	finder   Finder
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func NewHandler(finder Finder, gatherer prometheus.Gatherer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{finder: finder, gatherer: gatherer, logger: logger}
}

// Routes returns the HTTP mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /route", h.Route)
	mux.HandleFunc("POST /route", h.RouteJSON)
	mux.HandleFunc("GET /pools", h.Pools)
	mux.HandleFunc("GET /healthz", h.Health)
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Route answers GET /route?in=ETH&out=USDC&amount=1.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amount, err := strconv.ParseFloat(query.Get("amount"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a number")
		return
	}
	h.route(w, r, model.RouteRequest{
		TokenIn:  query.Get("in"),
		TokenOut: query.Get("out"),
		Amount:   amount,
	})
}

// RouteJSON answers POST /route with a JSON RouteRequest body.
func (h *Handler) RouteJSON(w http.ResponseWriter, r *http.Request) {
	var req model.RouteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.route(w, r, req)
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request, req model.RouteRequest) {
	route, err := h.finder.FindBestRoute(r.Context(), req.TokenIn, req.TokenOut, req.Amount)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("route search failed", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, route)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, router.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrNoRouteFound):
		return http.StatusNotFound
	case errors.Is(err, router.ErrSearchAborted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) Pools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pools": h.finder.Pools(),
	})
}

// Health reports unavailable until the first pools arrive.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.finder.Stats()
	status := "healthy"
	code := http.StatusOK
	if stats.Pools == 0 {
		status = "empty"
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]interface{}{
		"status": status,
		"stats":  stats,
	})
}

// writeJSON encodes body before sending headers so an unencodable value
// becomes a 500 instead of an empty 200.
func (h *Handler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		h.logger.Error("encode response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
