package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the API router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.ignite.io", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/domains", func(r chi.Router) {
			r.Post("/", h.RegisterDomain)
			r.Get("/", h.ListDomains)

			r.Route("/{hostname}", func(r chi.Router) {
				r.Delete("/", h.DeleteDomain)
				r.Post("/check", h.CheckDomain)
				r.Post("/retry", h.RetryDomain)
				r.Get("/records", h.DomainRecords)
				r.Post("/records/publish", h.PublishRecords)
				r.Put("/catch-all", h.SetCatchAll)
				r.Get("/addresses", h.ListAddresses)
				r.Post("/resync", h.ResyncDomain)
			})
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Post("/", h.CreateAddress)
			r.Route("/{address}", func(r chi.Router) {
				r.Delete("/", h.DeleteAddress)
				r.Put("/active", h.SetAddressActive)
				r.Put("/target", h.SetAddressTarget)
			})
		})

		// Internal surface for the message pipeline.
		r.Get("/routes/resolve", h.ResolveRoute)
	})

	return r
}
