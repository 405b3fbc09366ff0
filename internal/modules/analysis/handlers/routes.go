package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/backtest", h.HandleBacktest)
		r.Post("/montecarlo", h.HandleMonteCarlo)
		r.Post("/optimize", h.HandleOptimize)
		r.Post("/charts/{kind}", h.HandleChart)

		// Websocket progress stream
		r.Get("/stream", h.HandleStream)
	})
}
