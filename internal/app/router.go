package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockkeep/stockkeep/internal/auth"
	"github.com/stockkeep/stockkeep/internal/catalog"
	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/purchases"
	"github.com/stockkeep/stockkeep/internal/reports"
	"github.com/stockkeep/stockkeep/internal/sales"
	"github.com/stockkeep/stockkeep/internal/shared"
	"github.com/stockkeep/stockkeep/internal/users"
	"github.com/stockkeep/stockkeep/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	PolicyMiddleware policy.Middleware

	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	StockHandler     *ledger.Handler
	PurchasesHandler *purchases.Handler
	SalesHandler     *sales.Handler
	ReportsHandler   *reports.Handler
	UsersHandler     *users.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with default middleware.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/godowns", params.CatalogHandler.MountGodownRoutes)
	r.Route("/products", func(r chi.Router) {
		params.CatalogHandler.MountProductRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(params.PolicyMiddleware.Require(policy.ModuleInventory, policy.ActionView))
			r.Get("/{id}/stock", params.StockHandler.ProductStock)
		})
	})

	r.Route("/stock", params.StockHandler.MountRoutes)
	r.Route("/purchases", params.PurchasesHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)

	r.Route("/reports", func(r chi.Router) {
		params.ReportsHandler.MountRoutes(r)
		// Per-godown stock listing lives with the ledger but is
		// reachable from the reports surface as well.
		r.Group(func(r chi.Router) {
			r.Use(params.PolicyMiddleware.Require(policy.ModuleInventory, policy.ActionView))
			r.Get("/godown-stock/{id}", params.StockHandler.GodownStock)
		})
	})

	r.Route("/users", params.UsersHandler.MountRoutes)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
