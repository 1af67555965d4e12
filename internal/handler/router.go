package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/coupontracker/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса учёта купонов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	// promhttp сжимает ответ сам, поэтому /metrics остаётся вне GzipMiddleware.
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", h.ListCoupons)
				r.Post("/", h.CreateCoupon)
				r.Get("/{id}", h.GetCoupon)
				r.Put("/{id}", h.UpdateCoupon)
				r.Delete("/{id}", h.DeleteCoupon)
			})

			r.Get("/dashboard", h.Dashboard)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/tags", h.SuggestTags)
				r.Get("/company-summary", h.CompanySummary)
			})
		})

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
