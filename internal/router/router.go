package router

import (
	"net/http"

	"surplus-market/internal/handler"
	"surplus-market/internal/middleware"
	"surplus-market/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Offers        *handler.OfferHandler
	Orders        *handler.OrderHandler
	Pickups       *handler.PickupHandler
	Reviews       *handler.ReviewHandler
	Notifications *handler.NotificationHandler
	Profiles      *handler.ProfileHandler
	Sales         *handler.SalesHandler
	Webhooks      *handler.WebhookHandler
}

// Options configures routing.
type Options struct {
	JWTSecret string
	// EnableTestWebhook mounts the simulated webhook endpoint.
	EnableTestWebhook bool
	// StaticDir, when set, serves locally stored pickup artifacts under StaticPrefix.
	StaticDir    string
	StaticPrefix string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Applied in order: RequestID -> Recovery -> Logging -> CORS
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	if opts.StaticDir != "" && opts.StaticPrefix != "" {
		prefix := opts.StaticPrefix
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/api", func(r chi.Router) {
		// Gateway callbacks authenticate with their own signature.
		r.Route("/webhooks/mercadopago", func(r chi.Router) {
			r.Get("/", h.Webhooks.MercadoPago)
			r.Post("/", h.Webhooks.MercadoPago)
			if opts.EnableTestWebhook {
				r.Post("/test", h.Webhooks.Test)
			}
		})

		// Discovery is public.
		r.Get("/offers", h.Offers.Search)
		r.Get("/offers/{id}", h.Offers.GetByID)
		r.Get("/restaurants/{id}/reviews", h.Reviews.ListForRestaurant)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret, logger))

			r.Get("/notifications", h.Notifications.List)
			r.Post("/notifications/read-all", h.Notifications.MarkAllRead)
			r.Post("/notifications/{id}/read", h.Notifications.MarkRead)
			r.Delete("/notifications/{id}", h.Notifications.Delete)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleRestaurant))
				r.Post("/offers", h.Offers.Create)
				r.Post("/offers/{id}/cancel", h.Offers.Cancel)
				r.Post("/pickups/validate", h.Pickups.Validate)
				r.Post("/pickups/redeem", h.Pickups.Redeem)
				r.Get("/restaurants/me", h.Profiles.Restaurant)
				r.Patch("/restaurants/me", h.Profiles.UpdateRestaurant)
				r.Get("/restaurants/me/sales", h.Sales.History)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleConsumer))
				r.Post("/orders", h.Orders.Create)
				r.Get("/orders", h.Orders.List)
				r.Get("/orders/{id}", h.Orders.GetByID)
				r.Post("/orders/{id}/cancel", h.Orders.Cancel)
				r.Post("/reviews", h.Reviews.Create)
				r.Get("/reviews/mine", h.Reviews.ListMine)
				r.Get("/consumers/me", h.Profiles.Consumer)
				r.Patch("/consumers/me", h.Profiles.UpdateConsumer)
			})
		})
	})

	return r
}
