package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	custommiddleware "github.com/refillia/refillia-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса рефиллиа.
// corsOrigin — адрес веб-фронтенда; пустая строка отключает CORS.
func (h *Handler) SetupRouter(corsOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)
		r.Post("/user/logout", h.Logout)

		// Публичная карта поиска станций.
		r.Get("/stations", h.ListPublicStations)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/profile", h.GetProfile)

			r.Post("/stations", h.SubmitStation)
			r.Get("/stations/{stationID}", h.GetStation)
			r.Patch("/stations/{stationID}", h.EditStation)
			r.Post("/stations/{stationID}/report", h.ReportStation)

			r.Post("/stations/{stationID}/feedback", h.GiveFeedback)
			r.Get("/stations/{stationID}/feedback", h.ListStationFeedback)

			r.Post("/stations/{stationID}/directions", h.RequestDirections)
			r.Get("/stations/{stationID}/refill-prompt", h.GetRefillPrompt)
			r.Post("/stations/{stationID}/refill", h.SettleRefill)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(h.authMiddleware.AdminOnly)

			r.Get("/admin/stations/pending", h.ListPendingStations)
			r.Get("/admin/stations/verified", h.ListVerifiedStations)
			r.Get("/admin/stations/search", h.SearchStations)
			r.Post("/admin/stations/{stationID}/review", h.ReviewStation)
			r.Delete("/admin/stations/{stationID}", h.DeleteStation)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	if corsOrigin == "" {
		return r
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
