package handler

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth         *AuthHandler
	Waitlist     *WaitlistHandler
	Subscription *SubscriptionHandler
	Discover     *DiscoverHandler
	Messaging    *MessagingHandler
	Health       *HealthHandler
}

type RouterOptions struct {
	RequireTLS     bool
	AllowedOrigins []string
	Sessions       SessionDecoder
	CookieName     string
	RequestTimeout time.Duration
	// TrustedProxies gates forwarding headers; without it the peer address
	// is the client address.
	TrustedProxies []netip.Prefix
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(h Handlers, opts RouterOptions, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if opts.RequireTLS {
		router.Use(requireHTTPS)
	}

	router.Use(middleware.RequestID)
	if len(opts.TrustedProxies) > 0 {
		router.Use(trustedRealIP(opts.TrustedProxies))
	}
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		router.Use(middleware.Timeout(opts.RequestTimeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health.Health)
	router.Get("/ready", h.Health.Ready)
	router.Handle("/metrics", promhttp.Handler())

	protected := RequireSession(opts.Sessions, opts.CookieName, logger)

	router.Route("/api/v1", func(r chi.Router) {
		h.Auth.RegisterRoutes(r, protected)
		h.Waitlist.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(protected)
			h.Subscription.RegisterRoutes(r)
			h.Discover.RegisterRoutes(r)
			h.Messaging.RegisterRoutes(r)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}
