package api

import (
	"net/http"

	"github.com/court-opinions/engine/internal/api/handlers"
	mw "github.com/court-opinions/engine/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Tokens          mw.TokenParser
	AuthHandler     *handlers.AuthHandler
	ProjectsHandler *handlers.ProjectsHandler
	UploadsHandler  *handlers.UploadsHandler
	CasesHandler    *handlers.CasesHandler
	HealthHandler   *handlers.HealthHandler

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(dep.CORSOrigins))
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}
	r.Use(chimid.Compress(5, "application/json"))

	// Operational endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes (public)
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", dep.AuthHandler.Register)
		ar.Post("/login", dep.AuthHandler.Login)

		ar.Group(func(pr chi.Router) {
			pr.Use(mw.Auth(dep.Tokens))
			pr.Get("/me", dep.AuthHandler.Me)
			pr.Get("/users/scholars", dep.AuthHandler.Scholars)
		})
	})

	// Protected routes
	r.Group(func(protected chi.Router) {
		protected.Use(mw.Auth(dep.Tokens))

		protected.Route("/projects", func(pr chi.Router) {
			pr.Get("/", dep.ProjectsHandler.List)
			pr.Post("/", dep.ProjectsHandler.Create)

			pr.Route("/{id}", func(p chi.Router) {
				p.Get("/", dep.ProjectsHandler.Get)
				p.Patch("/", dep.ProjectsHandler.Update)
				p.Delete("/", dep.ProjectsHandler.Delete)

				p.Patch("/assign-scholar", dep.ProjectsHandler.AssignScholar)
				p.Patch("/unassign-scholar", dep.ProjectsHandler.UnassignScholar)
				p.Patch("/send-to-scholar", dep.ProjectsHandler.SendToScholar)
				p.Patch("/launch", dep.ProjectsHandler.Launch)
				p.Patch("/ai-model", dep.ProjectsHandler.UpdateAIModel)
				p.Patch("/budget", dep.ProjectsHandler.SetBudget)
				p.Post("/usage", dep.ProjectsHandler.RecordUsage)

				p.Get("/cases", dep.CasesHandler.List)
				p.Get("/cases/table", dep.CasesHandler.Table)
				p.Post("/cases/{caseId}/assignments", dep.CasesHandler.AssignValidator)
			})
		})

		protected.Route("/uploads/projects/{id}", func(ur chi.Router) {
			ur.Post("/parquet", dep.UploadsHandler.Upload)
			ur.Delete("/parquet", dep.UploadsHandler.Remove)
			ur.Get("/cases-count", dep.UploadsHandler.CasesCount)
		})
	})

	return r
}
