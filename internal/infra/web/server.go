package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"comics-commerce/internal/config"
	"comics-commerce/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the HTTP layer talks to.
type Deps struct {
	Users         usecase.UserUseCase
	Carts         usecase.CartUseCase
	Orders        usecase.OrderUseCase
	Subscriptions usecase.SubscriptionUseCase
	Ledger        usecase.LedgerUseCase
	Payments      usecase.PaymentUseCase
	Auth          *AuthManager
	Health        map[string]HealthCheck
}

type Server struct {
	users    usecase.UserUseCase
	carts    usecase.CartUseCase
	orders   usecase.OrderUseCase
	subs     usecase.SubscriptionUseCase
	ledger   usecase.LedgerUseCase
	payments usecase.PaymentUseCase
	auth     *AuthManager
	health   map[string]HealthCheck

	srvCfg        config.ServerConfig
	shop          config.ShopConfig
	webhookSecret string
	log           *zerolog.Logger
}

func NewServer(d Deps, srvCfg config.ServerConfig, shop config.ShopConfig, webhookSecret string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		users:         d.Users,
		carts:         d.Carts,
		orders:        d.Orders,
		subs:          d.Subscriptions,
		ledger:        d.Ledger,
		payments:      d.Payments,
		auth:          d.Auth,
		health:        d.Health,
		srvCfg:        srvCfg,
		shop:          shop,
		webhookSecret: webhookSecret,
		log:           &l,
	}
}

// Router builds the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(s.log),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.srvCfg.RequestTimeout),
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.srvCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhooks/payments", s.handlePaymentWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/subscriptions/plans", s.handleListPlans)

		r.Group(func(r chi.Router) {
			r.Use(s.optionalUser)
			r.Get("/cart", s.handleGetCart)
			r.Post("/cart/items", s.handleAddCartItem)
			r.Patch("/cart/items/{itemID}", s.handleUpdateCartItem)
			r.Delete("/cart/items/{itemID}", s.handleRemoveCartItem)
			r.Delete("/cart", s.handleClearCart)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/orders", s.handleCreateOrder)
			r.Get("/orders/{id}", s.handleGetOrder)

			r.Post("/subscriptions", s.handleSubscribe)
			r.Get("/subscriptions/current", s.handleCurrentSubscription)

			r.Get("/balance", s.handleBalance)

			r.Post("/payments/topup", s.handleCreateTopUp)
			r.Get("/payments/{id}", s.handlePaymentStatus)
			r.Post("/payments/{id}/sync", s.handleSyncPayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}

// NewHTTPServer wraps the router with the listener timeouts.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.srvCfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.srvCfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			s.log.Warn().Err(err).Str("check", name).Msg("health check failed")
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}
