// Package handlers provides HTTP handlers for portfolio analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/analysis"
	"github.com/aristath/portfolio-sim/internal/modules/charts"
	"github.com/aristath/portfolio-sim/internal/modules/montecarlo"
	"github.com/aristath/portfolio-sim/internal/modules/optimization"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
	// statusClientClosedRequest is reported when the caller went away mid-run.
	statusClientClosedRequest = 499
)

// Handler handles analysis HTTP requests
type Handler struct {
	service *analysis.Service
	charts  *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *analysis.Service, chartService *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		charts:  chartService,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleRun handles POST /api/analysis/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.service.Run(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, report)
}

// HandleBacktest handles POST /api/analysis/backtest
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Backtest(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, map[string]interface{}{
		"tickers": result.Tickers,
		"result":  result.Result,
		"summary": result.Summary,
		"series":  charts.ValueSeries(result.Result.Dates, result.Result.Values),
	})
}

// HandleMonteCarlo handles POST /api/analysis/montecarlo
func (h *Handler) HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.MonteCarlo(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, result)
}

// HandleOptimize handles POST /api/analysis/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Optimize(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, r, result)
}

// HandleChart handles POST /api/analysis/charts/{kind}
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	kind, err := charts.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := decodeRequest(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var img []byte
	switch kind {
	case charts.KindBacktest:
		var bt *analysis.BacktestReport
		if bt, err = h.service.Backtest(r.Context(), req); err == nil {
			img, err = h.charts.Backtest(bt.Result)
		}
	case charts.KindMonteCarlo:
		var mc *montecarlo.Result
		if mc, err = h.service.MonteCarlo(r.Context(), req); err == nil {
			img, err = h.charts.MonteCarlo(mc)
		}
	case charts.KindFrontier:
		var opt *optimization.Result
		if opt, err = h.service.Optimize(r.Context(), req); err == nil {
			img, err = h.charts.Frontier(opt)
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.log.Error().Err(err).Msg("Failed to write chart")
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataUnavailable), errors.Is(err, charts.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Analysis request failed")
	} else {
		h.log.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("Analysis request rejected")
	}
	h.write(w, r, status, errorBody{Error: err.Error()})
}

func (h *Handler) writeData(w http.ResponseWriter, r *http.Request, data interface{}) {
	h.write(w, r, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// wantsMsgpack reports whether the client asked for msgpack.
func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if wantsMsgpack(r) {
		body, err := msgpack.Marshal(data)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		if _, err := w.Write(body); err != nil {
			h.log.Error().Err(err).Msg("Failed to write msgpack response")
		}
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
