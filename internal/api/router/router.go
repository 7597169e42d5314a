package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/wolfman30/ig-lead-funnel/internal/http/middleware"
	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

// InstagramWebhook serves the Meta webhook handshake and event deliveries.
type InstagramWebhook interface {
	HandleVerification(w http.ResponseWriter, r *http.Request)
	HandleWebhook(w http.ResponseWriter, r *http.Request)
}

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	Instagram           InstagramWebhook
	LeadsHandler        *leads.Handler
	IntakeLimiter       *httpmiddleware.RateLimiter
	AdminToken          string
	AdminAllowedOrigins []string
	MetricsHandler      http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Instagram != nil {
		r.Get("/api/webhooks/meta/instagram", cfg.Instagram.HandleVerification)
		r.Post("/api/webhooks/meta/instagram", cfg.Instagram.HandleWebhook)
	}

	if cfg.LeadsHandler != nil {
		r.Group(func(intake chi.Router) {
			if cfg.IntakeLimiter != nil {
				intake.Use(cfg.IntakeLimiter.Handler)
			}
			intake.Post("/api/intake/submit", cfg.LeadsHandler.SubmitIntake)
		})

		r.Route("/api/admin", func(admin chi.Router) {
			admin.Use(middleware.Compress(5))
			admin.Use(httpmiddleware.AdminCORS(cfg.AdminAllowedOrigins))
			admin.Use(httpmiddleware.AdminToken(cfg.AdminToken))
			admin.Get("/leads", cfg.LeadsHandler.ListLeads)
			admin.Get("/leads.csv", cfg.LeadsHandler.ExportCSV)
			admin.Get("/leads/{id}", cfg.LeadsHandler.GetLead)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
