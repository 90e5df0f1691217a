package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router and mounts every API group.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Project-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireProject)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.HandleListLeads)
			r.Post("/", h.HandleCreateLead)
			r.Get("/metrics", h.HandleLeadMetrics)
			r.Get("/analytics", h.HandleLeadAnalytics)
			r.Get("/{id}", h.HandleGetLead)
			r.Post("/{id}/status", h.HandleLeadTransition)
			r.Post("/{id}/score", h.HandleLeadScore)
		})

		r.Route("/ad-campaigns", func(r chi.Router) {
			r.Get("/", h.HandleListAdCampaigns)
			r.Post("/", h.HandleCreateAdCampaign)
			r.Get("/statistics", h.HandleAdCampaignStatistics)
			r.Get("/dashboard", h.HandleAdCampaignDashboard)
			r.Get("/top", h.HandleTopAdCampaigns)
			r.Get("/worst", h.HandleWorstAdCampaigns)
			r.Get("/{id}", h.HandleGetAdCampaign)
			r.Put("/{id}", h.HandleUpdateAdCampaign)
			r.Post("/{id}/status", h.HandleAdCampaignTransition)
		})

		r.Route("/email-campaigns", func(r chi.Router) {
			r.Get("/", h.HandleListEmailCampaigns)
			r.Post("/", h.HandleCreateEmailCampaign)
			r.Get("/overview", h.HandleEmailOverview)
			r.Get("/performance", h.HandleEmailPerformance)
			r.Post("/from-feed", h.HandleDraftsFromFeed)
			r.Get("/{id}", h.HandleGetEmailCampaign)
			r.Put("/{id}", h.HandleUpdateEmailCampaign)
			r.Delete("/{id}", h.HandleDeleteEmailCampaign)
			r.Post("/{id}/schedule", h.HandleScheduleEmailCampaign)
			r.Post("/{id}/send", h.HandleSendEmailCampaign)
			r.Post("/{id}/status", h.HandleEmailCampaignTransition)
			r.Post("/{id}/events", h.HandleEmailMetricEvent)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", h.HandleListEmailLists)
			r.Post("/", h.HandleCreateEmailList)
			r.Post("/{id}/status", h.HandleEmailListTransition)
		})

		r.Route("/media", func(r chi.Router) {
			r.Post("/", h.HandleUploadMedia)
			r.Get("/{object}", h.HandleGetMedia)
		})
	})

	return r
}
