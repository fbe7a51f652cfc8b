package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmodels "marketplace/internal/auth/models"
)

// Deps bundles everything the router mounts.
type Deps struct {
	AuthService AuthService

	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Orders    *OrderHandler
	Favorites *FavoritesHandler
	Payments  *PaymentHandler
}

// NewRouter wires all endpoints. Buyer-only and seller-only groups sit
// behind RequireAuth plus the matching role gate.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Auth.Register(r)
	deps.Catalog.Register(r)
	deps.Payments.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(deps.AuthService))
		deps.Auth.RegisterProtected(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(authmodels.RoleBuyer))
			deps.Cart.Register(r)
			deps.Orders.RegisterBuyer(r)
			deps.Favorites.Register(r)
			deps.Payments.RegisterBuyer(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(authmodels.RoleSeller))
			deps.Orders.RegisterSeller(r)
		})
	})

	return r
}
