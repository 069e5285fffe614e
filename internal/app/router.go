package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pawsuite/pawsuite/internal/accounting/accounts"
	"github.com/pawsuite/pawsuite/internal/accounting/journals"
	"github.com/pawsuite/pawsuite/internal/clinic"
	"github.com/pawsuite/pawsuite/internal/hotel"
	"github.com/pawsuite/pawsuite/internal/inventory"
	"github.com/pawsuite/pawsuite/internal/purchasing"
	"github.com/pawsuite/pawsuite/internal/sales"
	"github.com/pawsuite/pawsuite/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AccountsHandler   *accounts.Handler
	JournalsHandler   *journals.Handler
	InventoryHandler  *inventory.Handler
	SalesHandler      *sales.Handler
	PurchasingHandler *purchasing.Handler
	ClinicHandler     *clinic.Handler
	HotelHandler      *hotel.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with pawsuite defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AccountsHandler != nil {
		r.Route("/accounting/accounts", params.AccountsHandler.MountRoutes)
	}
	if params.JournalsHandler != nil {
		r.Route("/accounting/journals", params.JournalsHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.PurchasingHandler != nil {
		r.Route("/purchasing", params.PurchasingHandler.MountRoutes)
	}
	if params.ClinicHandler != nil {
		r.Route("/clinic/appointments", params.ClinicHandler.MountRoutes)
	}
	if params.HotelHandler != nil {
		r.Route("/hotel/bookings", params.HotelHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
